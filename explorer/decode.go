package explorer

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/findy-network/campus-agent/agent/utils"
	"github.com/findy-network/campus-agent/explorer/rpc"
)

// ContentType is what a ledger transaction writes.
type ContentType string

const (
	ContentDID        ContentType = "DID"
	ContentSchema     ContentType = "Schema"
	ContentDefinition ContentType = "Definition"
)

// Queries of the cheqd ledger writes.
const (
	DIDQuery      = "message.action='/cheqd.did.v2.MsgCreateDidDoc'"
	ResourceQuery = "message.action='/cheqd.resource.v2.MsgCreateResource'"
)

var (
	testnetDID = regexp.MustCompile(`did:cheqd:testnet:[a-f0-9\-]{36}`)
	anyDID     = regexp.MustCompile(`did:cheqd:[^"'\s\x00\x1a\x12]+`)

	nameRe     = regexp.MustCompile(`"name":"([^"]+)"`)
	versionRe  = regexp.MustCompile(`"version":"([^"]+)"`)
	attrsRe    = regexp.MustCompile(`"attrNames":\[([^\]]+)\]`)
	tagRe      = regexp.MustCompile(`"tag":"([^"]+)"`)
	typeRe     = regexp.MustCompile(`"type":"([^"]+)"`)
	schemaIDRe = regexp.MustCompile(`"schemaId":"([^"]+)"`)
)

// Decoded is what the explorer reads from one transaction.
type Decoded struct {
	ContentType ContentType
	ContentID   string
	DID         string
	Sender      string
	Raw         []byte

	// schema
	Name      string
	Version   string
	AttrNames []string

	// definition
	Tag      string
	DefType  string
	SchemaID string
}

// Decode classifies tx and extracts what can be found in it. The
// transaction is protobuf, the JSON payloads inside are found by pattern.
func Decode(tx rpc.Tx) Decoded {
	d := Decoded{Sender: Sender(tx)}
	if raw, err := utils.DecodeStdB64(tx.Tx); err == nil {
		d.Raw = raw
	}
	d.DID = ExtractDID(d.Raw)

	switch {
	case hasAction(tx, "DidDoc"):
		d.ContentType = ContentDID
		d.ContentID = d.DID
	case hasAction(tx, "Resource"):
		d.classifyResource()
	default:
		d.ContentType = ContentDID
	}
	return d
}

func (d *Decoded) classifyResource() {
	raw := d.Raw
	switch {
	case bytes.Contains(raw, []byte(`"type":"CL"`)) || bytes.Contains(raw, []byte("credentialDefinition")):
		d.ContentType = ContentDefinition
		d.DefType = submatch(typeRe, raw)
		d.Tag = submatch(tagRe, raw)
		d.SchemaID = submatch(schemaIDRe, raw)
		if d.SchemaID == "" {
			// the first one is the issuer DID
			if refs := anyDID.FindAll(raw, 2); len(refs) > 1 {
				d.SchemaID = stripControl(refs[1])
			}
		}
		switch {
		case d.Tag != "" && d.DefType != "":
			d.ContentID = fmt.Sprintf("%s (%s)", d.DefType, d.Tag)
		case d.Tag != "":
			d.ContentID = fmt.Sprintf("Definition (%s)", d.Tag)
		case d.DefType != "":
			d.ContentID = d.DefType + " Definition"
		default:
			d.ContentID = "Definition"
		}
	case bytes.Contains(raw, []byte("anonCredsSchema")) || bytes.Contains(raw, []byte("attrNames")):
		d.ContentType = ContentSchema
		d.Name = submatch(nameRe, raw)
		d.Version = submatch(versionRe, raw)
		d.AttrNames = attrNames(raw)
		d.ContentID = d.Name
	default:
		d.ContentType = ContentSchema
	}
}

func hasAction(tx rpc.Tx, part string) bool {
	for _, ev := range tx.TxResult.Events {
		if ev.Type != "message" {
			continue
		}
		for _, at := range ev.Attributes {
			if at.Key == "action" && strings.Contains(at.Value, part) {
				return true
			}
		}
	}
	return false
}

// Sender returns the sender of the first message event or "Unknown".
func Sender(tx rpc.Tx) string {
	for _, ev := range tx.TxResult.Events {
		if ev.Type != "message" {
			continue
		}
		for _, at := range ev.Attributes {
			if at.Key == "sender" && at.Value != "" {
				return at.Value
			}
		}
	}
	return "Unknown"
}

// ExtractDID finds a testnet DID, then any cheqd DID with control bytes
// dropped.
func ExtractDID(raw []byte) string {
	if m := testnetDID.Find(raw); m != nil {
		return string(m)
	}
	if m := anyDID.Find(raw); m != nil {
		return stripControl(m)
	}
	return ""
}

func stripControl(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c < 0x20 || (c >= 0x7f && c <= 0x9f) {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

func submatch(re *regexp.Regexp, raw []byte) string {
	m := re.FindSubmatch(raw)
	if m == nil {
		return ""
	}
	return string(m[1])
}

func attrNames(raw []byte) []string {
	list := submatch(attrsRe, raw)
	if list == "" {
		return nil
	}
	var names []string
	for _, a := range strings.Split(list, ",") {
		a = strings.Map(func(r rune) rune {
			if r == '"' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
				return -1
			}
			return r
		}, a)
		if a != "" {
			names = append(names, a)
		}
	}
	return names
}
