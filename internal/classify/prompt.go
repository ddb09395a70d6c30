package classify

import (
	"fmt"
	"strings"

	"github.com/dvloznov/sms-ledger/internal/domain"
)

// DefaultModelName is the Gemini model used for SMS classification.
const DefaultModelName = "gemini-2.5-flash"

// buildTransactionPrompt constructs the fixed instruction template with the
// message text and sender interpolated. The template is deliberately
// conservative: anything ambiguous, promotional or forward-looking must come
// back as isTransaction:false.
func buildTransactionPrompt(smsText, sender string) string {
	var b strings.Builder

	b.WriteString("Analyze the following SMS message and determine if it reports a CONFIRMED bank debit or credit.\n")
	b.WriteString("If it does, extract the relevant information and return a JSON response.\n")
	b.WriteString("If it does not, return isTransaction: false.\n\n")

	fmt.Fprintf(&b, "Sender: %q\n", sender)
	fmt.Fprintf(&b, "SMS Text: %q\n\n", smsText)

	b.WriteString("Return a JSON object with exactly this structure:\n")
	b.WriteString("{\n")
	b.WriteString("  \"isTransaction\": boolean,\n")
	b.WriteString("  \"amount\": number or null (positive, no currency symbols),\n")
	b.WriteString("  \"vendor\": string or null (merchant/counterparty name),\n")
	fmt.Fprintf(&b, "  \"category\": string or null (one of: %s),\n", strings.Join(domain.Categories, ", "))
	b.WriteString("  \"dateTime\": string or null (ISO format, only if present in the SMS text),\n")
	b.WriteString("  \"currency\": string or null (ISO code, e.g. \"USD\", \"INR\", \"EUR\"),\n")
	b.WriteString("  \"transactionType\": \"debit\" or \"credit\" or null,\n")
	b.WriteString("  \"confidence\": number (0-1, how confident you are)\n")
	b.WriteString("}\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("1. Only bank-originated messages are eligible. Mark isTransaction true only for a completed movement of money on an account.\n")
	b.WriteString("2. Reject promotional offers, OTPs, payment requests, reminders and balance enquiries.\n")
	b.WriteString("3. Reject any message about a FUTURE or PENDING movement. Markers such as \"will be\", \"pending\", \"scheduled\", \"authorize\", \"to be\", \"upcoming\" mean isTransaction must be false.\n")
	b.WriteString("4. Extract amount only when it is explicitly tied to the debit/credit action; remove currency symbols.\n")
	b.WriteString("5. Infer category from the message semantics.\n")
	b.WriteString("6. Determine transactionType from the verbs: debited/spent/purchase/withdrawn = debit; credited/received/deposit = credit.\n")
	b.WriteString("7. Every field you cannot resolve must be null.\n")
	b.WriteString("8. Be conservative: if unsure, set isTransaction to false.\n\n")

	b.WriteString("Return ONLY the raw JSON object, no additional text, no Markdown fences.\n")

	return b.String()
}
