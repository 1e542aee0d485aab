package models

// Transaction is one entry in a block's full transaction list.
type Transaction struct {
	Hash  string `json:"hash"`
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// BlockDetail is the extended, on-demand record for a single block. It is
// fetched when a block is focused and discarded when the focus changes; it
// never survives a snapshot refresh on its own.
type BlockDetail struct {
	Hash         string        `json:"hash"`
	StateRoot    string        `json:"state_root"`
	TxRoot       string        `json:"tx_root"`
	ReceiptRoot  string        `json:"receipt_root"`
	Transactions []Transaction `json:"transactions"`
	Children     []string      `json:"children"`
}

// Selection is the current focus state shared by the graph and table views.
type Selection struct {
	FocusedHash       string       `json:"focused_hash"`
	Detail            *BlockDetail `json:"detail,omitempty"`
	DetailUnavailable bool         `json:"detail_unavailable"`
	ShowTransactions  bool         `json:"show_transactions"`
}
