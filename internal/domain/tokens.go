package domain

type TokenKind string

const (
	TokenRemember   TokenKind = "remember"
	TokenReset      TokenKind = "reset"
	TokenActivation TokenKind = "activation"
)

// Digest returns the stored digest for kind, or "" when none is issued.
func (a Account) Digest(kind TokenKind) string {
	switch kind {
	case TokenRemember:
		return a.RememberDigest
	case TokenReset:
		return a.ResetDigest
	case TokenActivation:
		return a.ActivationDigest
	default:
		return ""
	}
}
