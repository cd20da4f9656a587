package note

// Korean note templates. Markdown tables render action items; empty due
// dates show as a dash.

const meetingTemplate = `# {{.Meta.Title}}

- 일시: {{.Meta.Date}}
- 장소: {{.Meta.Place}}
- 참석자: {{.Meta.Attendees}}
- 진행: {{.Meta.Host}} / 서기: {{.Meta.Scribe}}

## 요약

{{.Summary.Brief}}

## 핵심 내용
{{range .Summary.Bullets}}
- {{.}}{{end}}

## 결정 사항
{{range .Summary.Decisions}}
- {{.}}{{end}}

## 액션 아이템

| 담당 | 할 일 | 기한 |
|------|------|------|
{{range .Summary.Actions}}| {{.Owner}} | {{.Task}} | {{if .Due}}{{.Due}}{{else}}-{{end}} |
{{end}}
## 전체 전사

{{.Transcript}}
`

const researchTemplate = `# {{.Meta.Title}}

- 일시: {{.Meta.Date}}
- 장소: {{.Meta.Place}}
- 참석자: {{.Meta.Attendees}}
- 진행: {{.Meta.Host}} / 서기: {{.Meta.Scribe}}
- 프로젝트: {{.Meta.Project}}

## 연구 배경 및 목표

{{.Enrich.Objective}}

## 요약

{{.Summary.Brief}}

## 방법
{{range .Enrich.Methods}}
- {{.}}{{end}}

## 결과
{{range .Enrich.Results}}
- {{.}}{{end}}

## 한계 및 주의사항

{{.Enrich.Limitations}}

## 결정 사항
{{range .Summary.Decisions}}
- {{.}}{{end}}

## 액션 아이템

| 담당 | 할 일 | 기한 |
|------|------|------|
{{range .Summary.Actions}}| {{.Owner}} | {{.Task}} | {{if .Due}}{{.Due}}{{else}}-{{end}} |
{{end}}
## 전체 전사

{{.Transcript}}
`
