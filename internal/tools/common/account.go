package common

// GetAccountFromArgs returns the explicit "account" argument, or "" when
// the caller did not name one. The account only scopes the summary cache,
// so an empty value disables caching for the call.
func GetAccountFromArgs(args map[string]any) string {
	if account, ok := args["account"].(string); ok {
		return account
	}
	return ""
}

// StringArg returns the string argument key, or "" when it is missing or
// not a string.
func StringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// BoolArg returns the boolean argument key, or false.
func BoolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}
