package source

// Kind identifies one of the lookup backends a tagged token can address.
type Kind int

const (
	ParameterStore Kind = iota + 1
	SecretStore
	Environment
)

var prefixes = map[Kind]string{
	ParameterStore: "AWS-PARAMETER",
	SecretStore:    "AWS-SECRET",
	Environment:    "ENV",
}

// Prefix returns the token prefix that routes to k.
func (k Kind) Prefix() string {
	return prefixes[k]
}

func (k Kind) String() string {
	switch k {
	case ParameterStore:
		return "parameter store"
	case SecretStore:
		return "secrets manager"
	case Environment:
		return "environment"
	}
	return "unknown"
}

// ParseKind maps a token prefix such as "AWS-SECRET" to its Kind.
func ParseKind(prefix string) (Kind, bool) {
	for k, p := range prefixes {
		if p == prefix {
			return k, true
		}
	}
	return 0, false
}
