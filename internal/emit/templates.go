package emit

const routesTmpl = `{{ define "routes" -}}
// Code generated by routegen. DO NOT EDIT.
{{- if not .Lazy }}
{{ range $i, $r := .Routes }}
import Page{{ $i }} from {{ mustToJson $r.Import }}
{{- end }}
{{- end }}

export const routes = [
{{- range $i, $r := .Routes }}
  {
    path: {{ mustToJson $r.Path }},
    name: {{ mustToJson $r.Name }},
    component: {{ if $.Lazy }}() => import({{ mustToJson $r.Import }}){{ else }}Page{{ $i }}{{ end }},
    meta: {{ mustToJson $r.Meta }},
  },
{{- end }}
]

export default routes
{{ end }}`

const configTmpl = `{{ define "config" -}}
// Code generated by routegen. DO NOT EDIT.

export const routeConfig = {{ mustToPrettyJson .Snapshot }}

export default routeConfig
{{ end }}`

const guardsTmpl = `{{ define "guards" -}}
// Generated once by routegen. This file is never overwritten; edit it freely.
import routeConfig from {{ mustToJson .ConfigImport }}
{{ if .TypeScript }}
interface RouteLike {
  meta: Record<string, unknown>
}

interface RouterLike {
  beforeEach(guard: (to: RouteLike, from: RouteLike) => unknown): unknown
  afterEach(hook: (to: RouteLike, from: RouteLike) => unknown): unknown
}
{{ end }}
export function setupRouterGuards(router{{ if .TypeScript }}: RouterLike{{ end }}) {
  const defaultTitle = {{ if .TypeScript }}(routeConfig.meta as Record<string, unknown>){{ else }}routeConfig.meta{{ end }}.title
  let pendingTitle = ""

  router.beforeEach((to) => {
    pendingTitle = String(to.meta.title ?? defaultTitle ?? "")
    return true
  })

  router.afterEach(() => {
    if (pendingTitle) {
      document.title = pendingTitle
    }
  })
}

export default setupRouterGuards
{{ end }}`
