// Package objinfo caches node metadata for the object_info endpoints.
//
// A Watcher polls the node registry, extracts metadata for every newly registered node
// exactly once and stores it in a Cache. An Interceptor serves the object_info routes from
// the cache when it is ready and falls back to extracting synchronously when it is not.
package objinfo

// Default values for metadata a node does not expose.
const (
	DefaultDescription  = ""
	DefaultCategory     = "sd"
	DefaultOriginModule = "nodes"
)

// Metadata describes one registered node. A record is never modified after it has been
// extracted.
type Metadata struct {
	Name           string      `json:"name"`
	DisplayName    string      `json:"display_name"`
	Description    string      `json:"description"`
	Category       string      `json:"category"`
	OriginModule   string      `json:"python_module"`
	Input          InputSchema `json:"input"`
	InputOrder     InputOrder  `json:"input_order"`
	Output         []string    `json:"output"`
	OutputIsList   []bool      `json:"output_is_list"`
	OutputName     []string    `json:"output_name"`
	OutputNode     bool        `json:"output_node"`
	OutputTooltips []string    `json:"output_tooltips,omitempty"`
	Deprecated     bool        `json:"deprecated,omitempty"`
	Experimental   bool        `json:"experimental,omitempty"`
}
