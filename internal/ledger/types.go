package ledger

import (
	"encoding/json"
	"time"
)

const (
	PermissionActive = "active"

	DefaultExpireSeconds = 30
	DefaultBlocksBehind  = 3
)

type PermissionLevel struct {
	Actor      string `json:"actor"`
	Permission string `json:"permission"`
}

type Action struct {
	Account       string            `json:"account"`
	Name          string            `json:"name"`
	Authorization []PermissionLevel `json:"authorization"`
	Data          map[string]any    `json:"data"`
}

// Envelope is what a caller asks the ledger to execute, before the
// reference-block header and signatures are attached.
type Envelope struct {
	Actions       []Action `json:"actions"`
	ExpireSeconds int      `json:"expireSeconds"`
	BlocksBehind  int      `json:"blocksBehind"`
}

// Transaction is the header plus serialized actions that get signed and pushed.
type Transaction struct {
	Expiration       time.Time
	RefBlockNum      uint16
	RefBlockPrefix   uint32
	MaxNetUsageWords uint32
	MaxCPUUsageMS    uint8
	DelaySec         uint32
	Actions          []PackedAction
}

// PackedAction is an Action whose data has been serialized with the contract ABI.
type PackedAction struct {
	Account       string
	Name          string
	Authorization []PermissionLevel
	Data          []byte
}

type ChainInfo struct {
	ChainID                  string `json:"chain_id"`
	HeadBlockNum             uint32 `json:"head_block_num"`
	LastIrreversibleBlockNum uint32 `json:"last_irreversible_block_num"`
}

type BlockHeader struct {
	ID             string `json:"id"`
	BlockNum       uint32 `json:"block_num"`
	Timestamp      string `json:"timestamp"`
	RefBlockPrefix uint32 `json:"ref_block_prefix"`
}

// TableQuery is the read_table request shape.
type TableQuery struct {
	JSON       bool   `json:"json"`
	Code       string `json:"code"`
	Scope      string `json:"scope"`
	Table      string `json:"table"`
	Limit      int    `json:"limit"`
	LowerBound string `json:"lower_bound,omitempty"`
}

type TableRows struct {
	Rows    []json.RawMessage `json:"rows"`
	NextKey string            `json:"next_key,omitempty"`
}

type pushRequest struct {
	Signatures            []string `json:"signatures"`
	Compression           string   `json:"compression"`
	PackedContextFreeData string   `json:"packed_context_free_data"`
	PackedTrx             string   `json:"packed_trx"`
}

type pushResponse struct {
	TransactionID string `json:"transaction_id"`
	Processed     struct {
		BlockNum  uint32 `json:"block_num"`
		BlockTime string `json:"block_time"`
		Receipt   *struct {
			Status string `json:"status"`
		} `json:"receipt"`
	} `json:"processed"`
}

// apiError is the node's error body for rejected requests.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   struct {
		Code    int    `json:"code"`
		Name    string `json:"name"`
		What    string `json:"what"`
		Details []struct {
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}
