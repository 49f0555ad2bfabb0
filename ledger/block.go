package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Block is one sealed unit of a chain. Blocks are never mutated after Mine
// returns.
type Block struct {
	Index        int64     `json:"index"`
	Timestamp    time.Time `json:"timestamp"`
	Transactions []Record  `json:"transactions"`
	PrevHash     string    `json:"prev_hash"`
	Nonce        int64     `json:"nonce"`
	Hash         string    `json:"hash"`
	Tier         Tier      `json:"tier"`
}

// hashHeader is the canonical encoding minus the nonce. Field order is fixed
// by the struct and record keys are sorted by encoding/json.
type hashHeader struct {
	Index        int64     `json:"index"`
	Timestamp    time.Time `json:"timestamp"`
	Transactions []Record  `json:"transactions"`
	PrevHash     string    `json:"prev_hash"`
}

func newBlock(index int64, records []Record, prevHash string, tier Tier) *Block {
	return &Block{
		Index:        index,
		Timestamp:    time.Now().UTC(),
		Transactions: records,
		PrevHash:     prevHash,
		Tier:         tier,
	}
}

func (b *Block) header() ([]byte, error) {
	data, err := json.Marshal(hashHeader{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		Transactions: b.Transactions,
		PrevHash:     b.PrevHash,
	})
	if err != nil {
		return nil, err
	}
	// reopen the object so the nonce can be appended as its last member
	return append(data[:len(data)-1], `,"nonce":`...), nil
}

func digest(buf, header []byte, nonce int64) ([]byte, string) {
	buf = append(buf[:0], header...)
	buf = strconv.AppendInt(buf, nonce, 10)
	buf = append(buf, '}')
	sum := sha256.Sum256(buf)
	return buf, hex.EncodeToString(sum[:])
}

// ComputeHash recomputes the digest from the stored fields. It returns an
// empty string when the payload cannot be encoded, which never matches a
// sealed hash.
func (b *Block) ComputeHash() string {
	header, err := b.header()
	if err != nil {
		return ""
	}
	_, h := digest(nil, header, b.Nonce)
	return h
}

// Mine searches nonces until the hash has difficulty leading zeros. There is
// no iteration cap.
func (b *Block) Mine(difficulty int) error {
	header, err := b.header()
	if err != nil {
		return err
	}
	target := strings.Repeat("0", max(difficulty, 0))
	buf := make([]byte, 0, len(header)+24)
	for {
		b.Nonce++
		buf, b.Hash = digest(buf, header, b.Nonce)
		if strings.HasPrefix(b.Hash, target) {
			return nil
		}
	}
}

// IsValid reports whether the stored hash matches a recomputation and meets
// the difficulty target.
func (b *Block) IsValid(difficulty int) bool {
	if b.ComputeHash() != b.Hash {
		return false
	}
	return MeetsTarget(b.Hash, difficulty)
}

// MeetsTarget reports whether hash starts with difficulty zeros.
func MeetsTarget(hash string, difficulty int) bool {
	return strings.HasPrefix(hash, strings.Repeat("0", max(difficulty, 0)))
}

// Record returns the first payload record, or nil.
func (b *Block) Record() Record {
	if len(b.Transactions) == 0 {
		return nil
	}
	return b.Transactions[0]
}
