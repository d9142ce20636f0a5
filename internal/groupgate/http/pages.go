package http

import (
	"html/template"
	"net/http"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
)

// The consent, approval-management and error pages are rendered server side.
// Styling is deliberately minimal; deployments front this with their own
// proxy-injected branding if they care.

var consentTemplate = template.Must(template.New("consent").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Approve Application</title></head>
<body>
<h1>Approve Application</h1>
<p><strong>{{.Client.Name}}</strong> ({{.Client.ID}}) requests access to your groups.</p>
{{if .Client.Description}}<p>{{.Client.Description}}</p>{{end}}
<form method="post" action="{{.Action}}">
<input type="hidden" name="authorize_nonce" value="{{.Nonce}}">
<input type="hidden" name="client_id" value="{{.Client.ID}}">
<input type="hidden" name="scope" value="{{.Scope}}">
<fieldset>
<legend>Requested permissions</legend>
{{if .AllowFiltering}}
{{range .Scopes}}<label><input type="checkbox" name="granted_scope" value="{{.}}" checked> {{.}}</label><br>{{end}}
{{else}}
<ul>{{range .Scopes}}<li>{{.}}</li>{{end}}</ul>
{{end}}
</fieldset>
<button type="submit" name="approval" value="approve">Approve</button>
<button type="submit" name="approval" value="deny">Deny</button>
</form>
</body>
</html>
`))

var errorTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Authorization Error</title></head>
<body>
<h1>Authorization Error</h1>
<p>{{.Description}}</p>
<p>The application that sent you here appears to be misconfigured. No data was shared.</p>
</body>
</html>
`))

var approvalsTemplate = template.Must(template.New("approvals").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Approved Applications</title></head>
<body>
<h1>Approved Applications</h1>
{{if .Entries}}
<table>
<tr><th>Application</th><th>Permissions</th><th></th></tr>
{{range .Entries}}
<tr>
<td>{{.Client.Name}}</td>
<td>{{.Approval.Scope}}</td>
<td>
<form method="post" action="{{$.Action}}">
<input type="hidden" name="client_id" value="{{.Client.ID}}">
<button type="submit">Revoke</button>
</form>
</td>
</tr>
{{end}}
</table>
{{else}}
<p>You have not approved any applications.</p>
{{end}}
</body>
</html>
`))

type consentPage struct {
	Client         domain.Client
	Scopes         []string
	Scope          string
	Nonce          string
	Action         string
	AllowFiltering bool
}

func renderConsent(w http.ResponseWriter, page consentPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = consentTemplate.Execute(w, page)
}

func renderErrorPage(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = errorTemplate.Execute(w, struct{ Description string }{Description: description})
}
