package siws

import "strings"

// ConstructMessage renders a challenge as the canonical wallet-standard text
// message. Wallets build the same text from the same input, so verification
// compares the signed bytes against this rendering byte for byte.
func ConstructMessage(input SignInInput) string {
	var b strings.Builder

	b.WriteString(input.Domain)
	b.WriteString(" wants you to sign in with your Solana account:\n")
	b.WriteString(input.Address)

	if input.Statement != "" {
		b.WriteString("\n\n")
		b.WriteString(input.Statement)
	}

	var fields []string
	appendField := func(name, value string) {
		if value != "" {
			fields = append(fields, name+": "+value)
		}
	}
	appendField("URI", input.URI)
	appendField("Version", input.Version)
	appendField("Chain ID", input.ChainID)
	appendField("Nonce", input.Nonce)
	appendField("Issued At", input.IssuedAt)
	appendField("Expiration Time", input.ExpirationTime)
	appendField("Request ID", input.RequestID)

	if len(input.Resources) > 0 {
		resources := "Resources:"
		for _, r := range input.Resources {
			resources += "\n- " + r
		}
		fields = append(fields, resources)
	}

	if len(fields) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(fields, "\n"))
	}

	return b.String()
}
