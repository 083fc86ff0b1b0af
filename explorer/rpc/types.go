package rpc

import (
	"strconv"
	"time"
)

// Int64 is a number which CometBFT sends as a string.
type Int64 int64

func (n *Int64) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if u, err := strconv.Unquote(s); err == nil {
		s = u
	}
	if s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*n = Int64(v)
	return nil
}

func (n Int64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(n), 10))), nil
}

type Status struct {
	NodeInfo struct {
		Network string `json:"network"`
		Moniker string `json:"moniker"`
		Version string `json:"version"`
	} `json:"node_info"`
	SyncInfo SyncInfo `json:"sync_info"`
}

type SyncInfo struct {
	LatestBlockHash   string    `json:"latest_block_hash"`
	LatestBlockHeight Int64     `json:"latest_block_height"`
	LatestBlockTime   time.Time `json:"latest_block_time"`
	CatchingUp        bool      `json:"catching_up"`
}

type BlockID struct {
	Hash string `json:"hash"`
}

type Header struct {
	ChainID         string    `json:"chain_id"`
	Height          Int64     `json:"height"`
	Time            time.Time `json:"time"`
	LastBlockID     BlockID   `json:"last_block_id"`
	ProposerAddress string    `json:"proposer_address"`
}

type BlockResult struct {
	BlockID BlockID `json:"block_id"`
	Block   struct {
		Header Header `json:"header"`
		Data   struct {
			Txs []string `json:"txs"`
		} `json:"data"`
	} `json:"block"`
}

type Validator struct {
	Address          string `json:"address"`
	VotingPower      Int64  `json:"voting_power"`
	ProposerPriority Int64  `json:"proposer_priority"`
	Jailed           bool   `json:"jailed,omitempty"`
}

type ValidatorsResult struct {
	BlockHeight Int64       `json:"block_height"`
	Validators  []Validator `json:"validators"`
	Total       Int64       `json:"total"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

type TxResult struct {
	Code   uint32  `json:"code"`
	Log    string  `json:"log"`
	Events []Event `json:"events"`
}

// Tx is a tx_search hit. Tx is the base64 encoded transaction.
type Tx struct {
	Hash      string   `json:"hash"`
	Height    Int64    `json:"height"`
	Index     uint32   `json:"index"`
	TxResult  TxResult `json:"tx_result"`
	Tx        string   `json:"tx"`
	Timestamp string   `json:"timestamp,omitempty"`
}

type TxSearchResult struct {
	Txs        []Tx  `json:"txs"`
	TotalCount Int64 `json:"total_count"`
}
