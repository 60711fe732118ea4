package fetchkit

// Version is the library semantic version (injected at build time optionally).
var Version = "0.1.0"

// userAgent is the default User-Agent value, injected at the lowest header
// precedence so both client defaults and call headers can override it.
func userAgent() string {
	return "fetchkit/" + Version
}
