package fetch

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/flier268/Minecraft-updater/internal/utils"
	"github.com/imroc/req/v3"
)

type AuthMode int

const (
	AuthNone AuthMode = iota
	AuthBasic
	AuthBearerToken
	AuthAPIKeyHeader
	AuthAPIKeyQuery
)

var authModeNames = map[AuthMode]string{
	AuthNone:         "None",
	AuthBasic:        "Basic",
	AuthBearerToken:  "BearerToken",
	AuthAPIKeyHeader: "ApiKeyHeader",
	AuthAPIKeyQuery:  "ApiKeyQuery",
}

func (m AuthMode) String() string {
	if s, ok := authModeNames[m]; ok {
		return s
	}
	return authModeNames[AuthNone]
}

// ParseAuthMode maps a configured name to a mode, ignoring case. Unknown names
// select AuthNone.
func ParseAuthMode(s string) AuthMode {
	s = strings.TrimSpace(s)
	for mode, name := range authModeNames {
		if strings.EqualFold(s, name) {
			return mode
		}
	}
	return AuthNone
}

// AuthOptions selects how outbound requests authenticate. Only the fields of
// the active Mode are used.
type AuthOptions struct {
	Mode        AuthMode
	Username    string
	Password    string
	BearerToken string
	HeaderName  string
	HeaderValue string
	QueryName   string
	QueryValue  string
}

func (o AuthOptions) IsConfigured() bool {
	return o.Mode != AuthNone
}

// Normalize degrades a mode whose required fields are blank to AuthNone.
func (o AuthOptions) Normalize() AuthOptions {
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	switch o.Mode {
	case AuthBasic:
		if blank(o.Username) {
			o.Mode, o.Username, o.Password = AuthNone, "", ""
		}
	case AuthBearerToken:
		if blank(o.BearerToken) {
			o.Mode, o.BearerToken = AuthNone, ""
		}
	case AuthAPIKeyHeader:
		if blank(o.HeaderName) || blank(o.HeaderValue) {
			o.Mode, o.HeaderName, o.HeaderValue = AuthNone, "", ""
		}
	case AuthAPIKeyQuery:
		if blank(o.QueryName) || blank(o.QueryValue) {
			o.Mode, o.QueryName, o.QueryValue = AuthNone, "", ""
		}
	case AuthNone:
	default:
		o.Mode = AuthNone
	}
	return o
}

// ApplyURL appends the API key query parameter when that mode is active.
func (o AuthOptions) ApplyURL(raw string) string {
	if o.Mode != AuthAPIKeyQuery || o.QueryName == "" {
		return raw
	}

	param := url.QueryEscape(o.QueryName) + "=" + url.QueryEscape(o.QueryValue)
	switch {
	case strings.HasSuffix(raw, "?") || strings.HasSuffix(raw, "&"):
		return raw + param
	case strings.Contains(raw, "?"):
		return raw + "&" + param
	default:
		return raw + "?" + param
	}
}

func (o AuthOptions) applyRequest(r *req.Request) *req.Request {
	switch o.Mode {
	case AuthBasic:
		r.SetBasicAuth(o.Username, o.Password)
	case AuthBearerToken:
		r.SetBearerAuthToken(o.BearerToken)
	case AuthAPIKeyHeader:
		r.SetHeader(o.HeaderName, o.HeaderValue)
	}
	return r
}

// LogValue implements slog.LogValuer with secrets masked.
func (o AuthOptions) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("mode", o.Mode.String())}
	switch o.Mode {
	case AuthBasic:
		attrs = append(attrs, slog.String("username", o.Username), slog.String("password", utils.MaskSecret(o.Password)))
	case AuthBearerToken:
		attrs = append(attrs, slog.String("token", utils.MaskSecret(o.BearerToken)))
	case AuthAPIKeyHeader:
		attrs = append(attrs, slog.String("header", o.HeaderName), slog.String("value", utils.MaskSecret(o.HeaderValue)))
	case AuthAPIKeyQuery:
		attrs = append(attrs, slog.String("param", o.QueryName), slog.String("value", utils.MaskSecret(o.QueryValue)))
	}
	return slog.GroupValue(attrs...)
}

const Redacted = "<redacted>"

// RedactURL returns raw with the value of the API key query parameter
// replaced, so it can be logged.
func RedactURL(raw string, o AuthOptions) string {
	if o.Mode != AuthAPIKeyQuery || o.QueryName == "" {
		return raw
	}

	base, query, ok := strings.Cut(raw, "?")
	if !ok {
		return raw
	}
	query, fragment, hasFragment := strings.Cut(query, "#")

	escapedName := url.QueryEscape(o.QueryName)
	parts := strings.Split(query, "&")
	for i, part := range parts {
		key, _, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		if strings.EqualFold(key, o.QueryName) || strings.EqualFold(key, escapedName) {
			parts[i] = key + "=" + Redacted
		}
	}

	out := base + "?" + strings.Join(parts, "&")
	if hasFragment {
		out += "#" + fragment
	}
	return out
}

// KeyValueReader is the configuration lookup used to load auth settings.
type KeyValueReader interface {
	ReadKeyValue(section, key string) string
}

const (
	KeyAuthType        = "DownloadAuthType"
	KeyAuthUsername    = "DownloadAuthUsername"
	KeyAuthPassword    = "DownloadAuthPassword"
	KeyAuthBearerToken = "DownloadAuthBearerToken"
	KeyAuthHeaderName  = "DownloadAuthHeaderName"
	KeyAuthHeaderValue = "DownloadAuthHeaderValue"
	KeyAuthQueryName   = "DownloadAuthQueryName"
	KeyAuthQueryValue  = "DownloadAuthQueryValue"
)

// LoadAuthOptions reads the DownloadAuth* keys of section and normalizes the
// result.
func LoadAuthOptions(r KeyValueReader, section string) AuthOptions {
	read := func(key string) string {
		return strings.TrimSpace(r.ReadKeyValue(section, key))
	}

	return AuthOptions{
		Mode:        ParseAuthMode(read(KeyAuthType)),
		Username:    read(KeyAuthUsername),
		Password:    r.ReadKeyValue(section, KeyAuthPassword),
		BearerToken: read(KeyAuthBearerToken),
		HeaderName:  read(KeyAuthHeaderName),
		HeaderValue: read(KeyAuthHeaderValue),
		QueryName:   read(KeyAuthQueryName),
		QueryValue:  read(KeyAuthQueryValue),
	}.Normalize()
}
