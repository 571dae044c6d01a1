package notifications

var commonTemplates = map[string]string{
	`default`: `
{{- len .Updates}} new tag{{if ne (len .Updates) 1}}s{{end}} found
{{- range .Updates}}
- {{.Image}}: {{with .Previous.Tag}}{{.}}{{else}}none{{end}} -> {{.Latest.Tag}}
{{- end -}}`,

	`compact`: `
{{- range $i, $u := .Updates -}}
{{- if $i}}, {{end}}{{$u.Image.Image}}:{{$u.Latest.Tag}}
{{- end -}}`,

	`json`: `{{ToJSON .}}`,
}
