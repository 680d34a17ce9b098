package parser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"api-tester-mcp/internal/mask"
	"api-tester-mcp/internal/placeholder"
	"api-tester-mcp/internal/types"
)

// Postman Collection v2.0/v2.1 wire types; only what endpoint extraction needs

type postmanCollection struct {
	Info     *postmanInfo      `json:"info"`
	Item     []postmanItem     `json:"item"`
	Auth     *postmanAuth      `json:"auth,omitempty"`
	Variable []postmanVariable `json:"variable,omitempty"`
}

type postmanInfo struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

// postmanItem is either a folder (Item set) or a request (Request set)
type postmanItem struct {
	Name     string            `json:"name"`
	Item     []postmanItem     `json:"item,omitempty"`
	Request  *postmanRequest   `json:"request,omitempty"`
	Response []postmanResponse `json:"response,omitempty"`
	Auth     *postmanAuth      `json:"auth,omitempty"`
}

type postmanRequest struct {
	Method string       `json:"method"`
	URL    postmanURL   `json:"url"`
	Header []postmanKV  `json:"header,omitempty"`
	Body   *postmanBody `json:"body,omitempty"`
	Auth   *postmanAuth `json:"auth,omitempty"`
}

type postmanURL struct {
	Raw      string      `json:"raw,omitempty"`
	Protocol string      `json:"protocol,omitempty"`
	Host     []string    `json:"host,omitempty"`
	Path     []string    `json:"path,omitempty"`
	Query    []postmanKV `json:"query,omitempty"`
	Variable []postmanKV `json:"variable,omitempty"`
}

// UnmarshalJSON accepts both the string and the object form of a request URL
func (u *postmanURL) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		u.Raw = s
		return nil
	}
	type alias postmanURL
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unmarshal postman URL: %w", err)
	}
	*u = postmanURL(obj)
	return nil
}

type postmanKV struct {
	Key         string `json:"key"`
	Value       any    `json:"value"`
	Description any    `json:"description,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
	Type        string `json:"type,omitempty"`
}

func (kv postmanKV) value() string {
	if kv.Value == nil {
		return ""
	}
	return fmt.Sprint(kv.Value)
}

type postmanBody struct {
	Mode       string      `json:"mode"`
	Raw        string      `json:"raw,omitempty"`
	URLEncoded []postmanKV `json:"urlencoded,omitempty"`
	FormData   []postmanKV `json:"formdata,omitempty"`
}

type postmanAuth struct {
	Type   string      `json:"type"`
	Bearer []postmanKV `json:"bearer,omitempty"`
	Basic  []postmanKV `json:"basic,omitempty"`
	APIKey []postmanKV `json:"apikey,omitempty"`
	OAuth2 []postmanKV `json:"oauth2,omitempty"`
}

type postmanResponse struct {
	Code   int         `json:"code"`
	Header []postmanKV `json:"header,omitempty"`
	Body   string      `json:"body,omitempty"`
}

type postmanVariable struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// baseURLVariables are the collection variable names that may carry the base URL, by preference
var baseURLVariables = []string{"baseUrl", "base_url", "baseURL", "url", "host"}

// PostmanParser handles Postman Collection v2.0 and v2.1 documents
type PostmanParser struct{}

// Parse flattens folders into endpoints in document order
func (p *PostmanParser) Parse(content []byte, raw map[string]any) (*Document, error) {
	if _, ok := raw["info"].(map[string]any); !ok {
		return nil, newParseError(types.SpecPostman, ReasonMissing, "info", nil)
	}
	if _, ok := raw["item"].([]any); !ok {
		return nil, newParseError(types.SpecPostman, ReasonMissing, "item", nil)
	}

	var coll postmanCollection
	if err := json.Unmarshal(content, &coll); err != nil {
		return nil, fmt.Errorf("postman collections must be JSON: %w", err)
	}
	if schema := coll.Info.Schema; schema != "" && !strings.Contains(schema, "v2.0") && !strings.Contains(schema, "v2.1") {
		return nil, newParseError(types.SpecPostman, ReasonUnsupported, schema, nil)
	}

	vars := make(map[string]string, len(coll.Variable))
	for _, v := range coll.Variable {
		if v.Value != nil {
			vars[v.Key] = fmt.Sprint(v.Value)
		}
	}

	doc := &Document{Endpoints: make([]types.Endpoint, 0)}
	for _, name := range baseURLVariables {
		if v, ok := vars[name]; ok && v != "" {
			doc.BaseURL = strings.TrimRight(placeholder.Normalize(v), "/")
			break
		}
	}

	p.flatten(doc, coll.Item, coll.Auth)

	if doc.BaseURL == "" {
		doc.BaseURL = firstRequestOrigin(coll.Item)
	}
	return doc, nil
}

// flatten walks folders recursively; auth is inherited collection -> folder -> request
func (p *PostmanParser) flatten(doc *Document, items []postmanItem, inherited *postmanAuth) {
	for _, item := range items {
		auth := inherited
		if item.Auth != nil {
			auth = item.Auth
		}
		if len(item.Item) > 0 {
			p.flatten(doc, item.Item, auth)
			continue
		}
		if item.Request == nil {
			continue
		}
		if item.Request.Auth != nil {
			auth = item.Request.Auth
		}
		doc.Endpoints = append(doc.Endpoints, convertPostmanRequest(item, auth))
	}
}

func convertPostmanRequest(item postmanItem, auth *postmanAuth) types.Endpoint {
	req := item.Request
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = "GET"
	}
	rawURL := placeholder.Normalize(resolvePostmanURL(req.URL))
	path, rawQuery := splitPostmanURL(rawURL)

	ep := types.Endpoint{
		Method:     method,
		Path:       path,
		Summary:    item.Name,
		Parameters: make([]types.Parameter, 0),
		Responses:  make(map[int]types.Response),
	}

	declared := make(map[string]bool)
	for _, v := range req.URL.Variable {
		declared[v.Key] = true
		ep.Parameters = append(ep.Parameters, types.Parameter{
			Name:     v.Key,
			In:       types.LocationPath,
			Type:     "string",
			Required: true,
			Example:  nonEmpty(placeholder.Normalize(v.value())),
		})
	}
	for _, name := range placeholder.Names(path) {
		if declared[name] {
			continue
		}
		ep.Parameters = append(ep.Parameters, types.Parameter{Name: name, In: types.LocationPath, Type: "string", Required: true})
	}

	queries := req.URL.Query
	if len(queries) == 0 && rawQuery != "" {
		if values, err := url.ParseQuery(rawQuery); err == nil {
			for _, pair := range strings.Split(rawQuery, "&") {
				key := strings.SplitN(pair, "=", 2)[0]
				if key != "" && values.Has(key) {
					queries = append(queries, postmanKV{Key: key, Value: values.Get(key)})
					values.Del(key)
				}
			}
		}
	}
	for _, q := range queries {
		if q.Disabled || q.Key == "" {
			continue
		}
		ep.Parameters = append(ep.Parameters, types.Parameter{
			Name:    q.Key,
			In:      types.LocationQuery,
			Type:    "string",
			Example: nonEmpty(placeholder.Normalize(q.value())),
		})
	}

	var headerScheme *types.SecurityScheme
	for _, h := range req.Header {
		if h.Disabled || h.Key == "" {
			continue
		}
		value := placeholder.Normalize(h.value())
		if headerScheme == nil {
			headerScheme = headerCredential(h.Key, value)
		}
		ep.Parameters = append(ep.Parameters, types.Parameter{
			Name:    h.Key,
			In:      types.LocationHeader,
			Type:    "string",
			Example: nonEmpty(value),
		})
	}

	if req.Body != nil {
		ep.RequestBody = convertPostmanBody(req.Body)
	}

	for _, resp := range item.Response {
		if resp.Code == 0 {
			continue
		}
		r := types.Response{}
		for _, h := range resp.Header {
			if strings.EqualFold(h.Key, "Content-Type") {
				r.ContentType = strings.TrimSpace(strings.SplitN(h.value(), ";", 2)[0])
			}
		}
		var decoded any
		if resp.Body != "" && json.Unmarshal([]byte(resp.Body), &decoded) == nil {
			r.Schema = inferSchema(decoded)
		}
		ep.Responses[resp.Code] = r
	}

	if scheme, ok := convertPostmanAuth(auth); ok {
		ep.Security = []types.SecurityScheme{scheme}
		ep.AuthRequired = true
	} else if headerScheme != nil {
		ep.Security = []types.SecurityScheme{*headerScheme}
		ep.AuthRequired = true
	}
	return ep
}

func convertPostmanBody(body *postmanBody) *types.RequestBody {
	switch body.Mode {
	case "raw":
		raw := placeholder.Normalize(body.Raw)
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return &types.RequestBody{ContentType: "text/plain", Schema: &types.Schema{Type: "string"}, Example: raw}
		}
		return &types.RequestBody{ContentType: "application/json", Schema: inferSchema(decoded), Example: decoded}
	case "urlencoded", "formdata":
		fields := body.URLEncoded
		ct := "application/x-www-form-urlencoded"
		if body.Mode == "formdata" {
			fields = body.FormData
			ct = "multipart/form-data"
		}
		schema := &types.Schema{Type: "object", Properties: make(map[string]*types.Schema)}
		for _, kv := range fields {
			if kv.Disabled || kv.Key == "" {
				continue
			}
			schema.Properties[kv.Key] = &types.Schema{Type: "string", Example: nonEmpty(placeholder.Normalize(kv.value()))}
		}
		return &types.RequestBody{ContentType: ct, Schema: schema}
	}
	return nil
}

func convertPostmanAuth(auth *postmanAuth) (types.SecurityScheme, bool) {
	if auth == nil {
		return types.SecurityScheme{}, false
	}
	switch strings.ToLower(auth.Type) {
	case "bearer", "jwt":
		return types.SecurityScheme{Name: "postman-bearer", Kind: types.SecurityBearer}, true
	case "basic":
		return types.SecurityScheme{Name: "postman-basic", Kind: types.SecurityBasic}, true
	case "oauth2":
		return types.SecurityScheme{Name: "postman-oauth2", Kind: types.SecurityOAuth2}, true
	case "apikey":
		scheme := types.SecurityScheme{Name: "postman-apikey", Kind: types.SecurityAPIKey, In: types.LocationHeader, ParamName: "X-API-Key"}
		for _, kv := range auth.APIKey {
			switch kv.Key {
			case "key":
				if v := kv.value(); v != "" {
					scheme.ParamName = v
				}
			case "in":
				if kv.value() == "query" {
					scheme.In = types.LocationQuery
				}
			}
		}
		return scheme, true
	}
	return types.SecurityScheme{}, false
}

// headerCredential recognizes an Authorization header, or any header whose
// value references a credential-like variable, as an auth requirement
func headerCredential(name, value string) *types.SecurityScheme {
	if strings.EqualFold(name, "Authorization") {
		kind := types.SecurityBearer
		if strings.HasPrefix(strings.ToLower(value), "basic ") {
			kind = types.SecurityBasic
		}
		return &types.SecurityScheme{Name: "authorization-header", Kind: kind}
	}
	for _, ref := range placeholder.Names(value) {
		lower := strings.ToLower(ref)
		if mask.IsSensitive(ref) || strings.Contains(lower, "key") || strings.Contains(lower, "token") {
			return &types.SecurityScheme{Name: "header-" + strings.ToLower(name), Kind: types.SecurityAPIKey, In: types.LocationHeader, ParamName: name}
		}
	}
	return nil
}

// resolvePostmanURL reconstructs a raw URL from the object form when needed
func resolvePostmanURL(u postmanURL) string {
	if u.Raw != "" {
		return u.Raw
	}
	var sb strings.Builder
	if u.Protocol != "" {
		sb.WriteString(u.Protocol)
		sb.WriteString("://")
	}
	sb.WriteString(strings.Join(u.Host, "."))
	for _, seg := range u.Path {
		sb.WriteByte('/')
		sb.WriteString(seg)
	}
	return sb.String()
}

// splitPostmanURL strips scheme, host or a leading {base} placeholder and the query string
func splitPostmanURL(raw string) (path, query string) {
	if i := strings.Index(raw, "?"); i >= 0 {
		raw, query = raw[:i], raw[i+1:]
	}
	if i := strings.Index(raw, "://"); i >= 0 {
		raw = raw[i+3:]
		if j := strings.Index(raw, "/"); j >= 0 {
			raw = raw[j:]
		} else {
			raw = "/"
		}
	} else if strings.HasPrefix(raw, "{") {
		if j := strings.Index(raw, "/"); j >= 0 {
			raw = raw[j:]
		} else {
			raw = "/"
		}
	}
	if !strings.HasPrefix(raw, "/") {
		if j := strings.Index(raw, "/"); j >= 0 {
			raw = raw[j:]
		} else {
			raw = "/"
		}
	}
	return raw, query
}

// firstRequestOrigin derives a base URL from the first request when no variable declares one
func firstRequestOrigin(items []postmanItem) string {
	for _, item := range items {
		if len(item.Item) > 0 {
			if origin := firstRequestOrigin(item.Item); origin != "" {
				return origin
			}
			continue
		}
		if item.Request == nil {
			continue
		}
		raw := placeholder.Normalize(resolvePostmanURL(item.Request.URL))
		if i := strings.Index(raw, "?"); i >= 0 {
			raw = raw[:i]
		}
		if i := strings.Index(raw, "://"); i >= 0 {
			if j := strings.Index(raw[i+3:], "/"); j >= 0 {
				return raw[:i+3+j]
			}
			return raw
		}
		if strings.HasPrefix(raw, "{") {
			if j := strings.Index(raw, "}"); j >= 0 {
				return raw[:j+1]
			}
		}
		return ""
	}
	return ""
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
