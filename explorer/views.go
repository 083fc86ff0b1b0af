package explorer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/findy-network/campus-agent/explorer/rpc"
)

// BlockTime is the estimated block interval of the ledger.
const BlockTime = 6 * time.Second

type NetworkStats struct {
	TotalDIDs        int `json:"totalDids"`
	TotalSchemas     int `json:"totalSchemas"`
	TotalDefinitions int `json:"totalDefinitions"`
	ActiveValidators int `json:"activeValidators"`
}

type Transaction struct {
	Hash        string      `json:"hash"`
	Height      int64       `json:"height"`
	Timestamp   time.Time   `json:"timestamp"`
	Status      string      `json:"status"` // success or failed
	Sender      string      `json:"sender"`
	ContentType ContentType `json:"contentType"`
	ContentID   string      `json:"contentId,omitempty"`
}

type DIDDocument struct {
	ID              string    `json:"id"`
	Controller      []string  `json:"controller"`
	Authentication  []string  `json:"authentication"`
	Created         time.Time `json:"created"`
	Updated         time.Time `json:"updated"`
	BlockHeight     int64     `json:"blockHeight"`
	TransactionHash string    `json:"transactionHash"`
}

type Resource struct {
	CollectionID    string      `json:"collectionId"`
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	ResourceType    ContentType `json:"resourceType"`
	MediaType       string      `json:"mediaType"`
	Created         time.Time   `json:"created"`
	Checksum        string      `json:"checksum"`
	BlockHeight     int64       `json:"blockHeight"`
	TransactionHash string      `json:"transactionHash"`
	RelatedSchemaID string      `json:"relatedSchemaId,omitempty"`
	Attributes      []string    `json:"attributes,omitempty"`
	Tag             string      `json:"tag,omitempty"`
}

type BlockInfo struct {
	Height    int64     `json:"height"`
	Hash      string    `json:"hash"`
	Proposer  string    `json:"proposer"`
	Timestamp time.Time `json:"timestamp"`
	TxCount   int       `json:"txCount"`
}

type Validator struct {
	Name             string `json:"name"`
	Address          string `json:"address"`
	Status           string `json:"status"`
	ProposerPriority string `json:"proposerPriority"`
	VotingPower      string `json:"votingPower"`
}

type NetworkHealth struct {
	Network         string    `json:"network"`
	BlockHeight     int64     `json:"blockHeight"`
	Syncing         bool      `json:"syncingStatus"`
	LatestBlockTime time.Time `json:"latestBlockTime"`
}

// Snapshot is one refresh of the indexer. It is never modified after it's
// published.
type Snapshot struct {
	Connected    bool          `json:"isConnected"`
	Error        string        `json:"error,omitempty"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	Health       NetworkHealth `json:"networkHealth"`
	Stats        NetworkStats  `json:"stats"`
	Transactions []Transaction `json:"recentTransactions"`
	DIDs         []DIDDocument `json:"dids"`
	Resources    []Resource    `json:"resources"`
	Validators   []Validator   `json:"activeValidators"`
	LatestBlock  *BlockInfo    `json:"latestBlock,omitempty"`
}

// Validators returns the first four validators with their share of the
// voting power.
func Validators(list []rpc.Validator) []Validator {
	var total int64
	for _, v := range list {
		total += int64(v.VotingPower)
	}
	n := len(list)
	if n > 4 {
		n = 4
	}
	views := make([]Validator, 0, n)
	for i, v := range list[:n] {
		power := "0%"
		if total > 0 {
			power = fmt.Sprintf("%.1f%%", float64(v.VotingPower)/float64(total)*100)
		}
		status := "Active"
		if v.Jailed {
			status = "Jailed"
		}
		views = append(views, Validator{
			Name:             fmt.Sprintf("Validator %d", i),
			Address:          v.Address,
			Status:           status,
			ProposerPriority: fmt.Sprint(int64(v.ProposerPriority)),
			VotingPower:      power,
		})
	}
	return views
}

// Block builds the block view. The proposer is named if it's one of vals.
func Block(b *rpc.BlockResult, vals []Validator) BlockInfo {
	h := b.Block.Header
	proposer := "Unknown"
	for _, v := range vals {
		if v.Address == h.ProposerAddress {
			proposer = v.Name
			break
		}
	}
	hash := b.BlockID.Hash
	if hash == "" {
		hash = h.LastBlockID.Hash
	}
	return BlockInfo{
		Height:    int64(h.Height),
		Hash:      hash,
		Proposer:  proposer,
		Timestamp: h.Time,
		TxCount:   len(b.Block.Data.Txs),
	}
}

func status(tx rpc.Tx) string {
	if tx.TxResult.Code == 0 {
		return "success"
	}
	return "failed"
}

func transaction(tx rpc.Tx, d Decoded, ts time.Time) Transaction {
	return Transaction{
		Hash:        tx.Hash,
		Height:      int64(tx.Height),
		Timestamp:   ts,
		Status:      status(tx),
		Sender:      d.Sender,
		ContentType: d.ContentType,
		ContentID:   d.ContentID,
	}
}

func placeholderDID(tx rpc.Tx) string {
	return "did:cheqd:testnet:" + prefix(tx.Hash, 16)
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

func didDocument(tx rpc.Tx, d Decoded, ts time.Time) DIDDocument {
	id := d.DID
	if id == "" {
		id = placeholderDID(tx)
	}
	return DIDDocument{
		ID:              id,
		Controller:      []string{id},
		Authentication:  []string{id + "#key-1"},
		Created:         ts,
		Updated:         ts,
		BlockHeight:     int64(tx.Height),
		TransactionHash: tx.Hash,
	}
}

func resource(tx rpc.Tx, d Decoded, ts time.Time) Resource {
	r := Resource{
		CollectionID:    d.DID,
		ID:              strings.ToLower(string(d.ContentType)) + "-" + prefix(tx.Hash, 8),
		Name:            "Unknown Resource",
		ResourceType:    d.ContentType,
		MediaType:       "application/json",
		Created:         ts,
		Checksum:        prefix(tx.Hash, 32),
		BlockHeight:     int64(tx.Height),
		TransactionHash: tx.Hash,
	}
	if r.CollectionID == "" {
		r.CollectionID = placeholderDID(tx)
	}
	switch d.ContentType {
	case ContentSchema:
		if d.Name != "" {
			version := d.Version
			if version == "" {
				version = "1.0"
			}
			r.Name = fmt.Sprintf("%s v%s", d.Name, version)
		}
		r.Attributes = d.AttrNames
	case ContentDefinition:
		if d.Tag != "" {
			defType := d.DefType
			if defType == "" {
				defType = "Credential"
			}
			r.Name = fmt.Sprintf("%s Definition (%s)", defType, d.Tag)
		}
		r.Tag = d.Tag
		r.RelatedSchemaID = d.SchemaID
	}
	return r
}

func sortTransactions(list []Transaction) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.After(list[j].Timestamp)
	})
}

func sortDIDs(list []DIDDocument) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].BlockHeight > list[j].BlockHeight
	})
}

func sortResources(list []Resource) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].BlockHeight > list[j].BlockHeight
	})
}
