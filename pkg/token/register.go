package token

import "sync"

// Dynamic tokens start after maxBuiltin (999). Registration happens while
// dialect packages initialize; lookups afterwards are read-only.
var (
	dynamicMu       sync.RWMutex
	nextTokenID     = maxBuiltin
	dynamicTokens   = make(map[TokenType]string)
	dynamicKeywords = make(map[string]TokenType)
)

// Register registers a dynamic keyword token with the given (upper-case) name
// and returns its type. Registering the same name twice returns the existing
// token, so several dialects can share ILIKE or QUALIFY.
func Register(name string) TokenType {
	dynamicMu.Lock()
	defer dynamicMu.Unlock()

	key := lower(name)
	if t, ok := dynamicKeywords[key]; ok {
		return t
	}
	nextTokenID++
	t := nextTokenID
	dynamicTokens[t] = name
	dynamicKeywords[key] = t
	return t
}

// getDynamicName returns the name of a dynamic token.
func getDynamicName(t TokenType) (string, bool) {
	dynamicMu.RLock()
	defer dynamicMu.RUnlock()
	name, ok := dynamicTokens[t]
	return name, ok
}

// LookupDynamicKeyword returns the token type registered for a name (any case).
// Returns IDENT and false if the keyword is not registered.
func LookupDynamicKeyword(name string) (TokenType, bool) {
	dynamicMu.RLock()
	defer dynamicMu.RUnlock()
	if tok, ok := dynamicKeywords[lower(name)]; ok {
		return tok, true
	}
	return IDENT, false
}

// IsDynamic returns true if the token type is a dynamically registered token.
func IsDynamic(t TokenType) bool {
	return t > maxBuiltin
}

// RegisteredTokens returns a copy of all registered dynamic tokens.
func RegisteredTokens() map[TokenType]string {
	dynamicMu.RLock()
	defer dynamicMu.RUnlock()
	result := make(map[TokenType]string, len(dynamicTokens))
	for k, v := range dynamicTokens {
		result[k] = v
	}
	return result
}
