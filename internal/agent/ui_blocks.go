package agent

// UIBlockKind selects how a tool result is drawn by the CLI and returned by
// the HTTP API.
type UIBlockKind string

const (
	UIBlockTable UIBlockKind = "table"
	UIBlockKV    UIBlockKind = "kv"
)

// UIBlock is a structured view of a tool result.
type UIBlock struct {
	Kind  UIBlockKind `json:"kind"`
	Table *UITable    `json:"table,omitempty"`
	KV    *UIKV       `json:"kv,omitempty"`
}

type UITable struct {
	Title   string     `json:"title,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type UIKV struct {
	Title string   `json:"title,omitempty"`
	Items []KVItem `json:"items"`
}

type KVItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TableBlock builds a table block.
func TableBlock(title string, headers []string, rows [][]string) UIBlock {
	return UIBlock{Kind: UIBlockTable, Table: &UITable{Title: title, Headers: headers, Rows: rows}}
}

// KVBlock builds a key/value block.
func KVBlock(title string, items ...KVItem) UIBlock {
	return UIBlock{Kind: UIBlockKV, KV: &UIKV{Title: title, Items: items}}
}
