package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cardgame/go-client/internal/rpckit"
	"cardgame/go-client/internal/signing"
	"cardgame/go-client/pkg/models"
)

const (
	blockTimeLayout  = "2006-01-02T15:04:05.999"
	expirationLayout = "2006-01-02T15:04:05"
)

// SubmitTransaction anchors env to a block BlocksBehind the head, serializes
// it with the contract ABI, signs it and pushes it. It returns once the node
// has accepted the transaction.
func (c *HTTPClient) SubmitTransaction(ctx context.Context, env Envelope, signer signing.Provider) (models.TransactionResult, error) {
	if len(env.Actions) == 0 {
		return models.TransactionResult{}, rpckit.InvalidInput("transaction has no actions")
	}
	if signer == nil {
		return models.TransactionResult{}, rpckit.Signing(errors.New("no signing provider"))
	}
	info, err := c.ChainInfo(ctx)
	if err != nil {
		return models.TransactionResult{}, err
	}
	ref, err := c.Block(ctx, referenceBlockNum(info.HeadBlockNum, env.BlocksBehind))
	if err != nil {
		return models.TransactionResult{}, err
	}
	actions, err := c.packActions(ctx, env.Actions)
	if err != nil {
		return models.TransactionResult{}, err
	}
	tx, err := BuildTransaction(env, ref, actions)
	if err != nil {
		return models.TransactionResult{}, err
	}
	packed, err := tx.Pack()
	if err != nil {
		return models.TransactionResult{}, rpckit.InvalidInput(err.Error())
	}
	digest, err := SigningDigest(info.ChainID, packed)
	if err != nil {
		return models.TransactionResult{}, err
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		if rpckit.KindOf(err) == rpckit.KindUnknown {
			err = rpckit.Signing(err)
		}
		return models.TransactionResult{}, err
	}

	var resp pushResponse
	raw := json.RawMessage{}
	if err := c.post(ctx, "/v1/chain/push_transaction", pushRequest{
		Signatures:  []string{sig},
		Compression: "none",
		PackedTrx:   hex.EncodeToString(packed),
	}, &raw); err != nil {
		return models.TransactionResult{}, err
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.TransactionResult{}, rpckit.Transport(fmt.Errorf("decode push response: %w", err))
	}
	if resp.Processed.Receipt != nil && resp.Processed.Receipt.Status != "" && resp.Processed.Receipt.Status != "executed" {
		return models.TransactionResult{}, rpckit.Rejected(0, "receipt_status", "transaction "+resp.Processed.Receipt.Status)
	}
	return models.TransactionResult{
		TransactionID: resp.TransactionID,
		BlockNum:      resp.Processed.BlockNum,
		BlockTime:     resp.Processed.BlockTime,
		Raw:           raw,
	}, nil
}

// packActions serializes each action's data with its contract's ABI, fetching
// every distinct ABI once.
func (c *HTTPClient) packActions(ctx context.Context, actions []Action) ([]PackedAction, error) {
	abis := make(map[string]*ABI)
	out := make([]PackedAction, 0, len(actions))
	for _, a := range actions {
		abi, ok := abis[a.Account]
		if !ok {
			var err error
			if abi, err = c.ContractABI(ctx, a.Account); err != nil {
				return nil, err
			}
			abis[a.Account] = abi
		}
		data, err := abi.PackAction(a.Name, a.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, PackedAction{
			Account:       a.Account,
			Name:          a.Name,
			Authorization: a.Authorization,
			Data:          data,
		})
	}
	return out, nil
}

// BuildTransaction attaches the reference block and expiration to the packed actions.
func BuildTransaction(env Envelope, ref BlockHeader, actions []PackedAction) (Transaction, error) {
	ts, err := time.ParseInLocation(blockTimeLayout, ref.Timestamp, time.UTC)
	if err != nil {
		return Transaction{}, rpckit.Transport(fmt.Errorf("reference block timestamp %q: %w", ref.Timestamp, err))
	}
	expire := env.ExpireSeconds
	if expire <= 0 {
		expire = DefaultExpireSeconds
	}
	return Transaction{
		Expiration:     ts.Add(time.Duration(expire) * time.Second).Truncate(time.Second),
		RefBlockNum:    uint16(ref.BlockNum & 0xffff),
		RefBlockPrefix: ref.RefBlockPrefix,
		Actions:        actions,
	}, nil
}

// SigningDigest is sha256(chain id || packed transaction || 32 zero bytes),
// the trailing zeros standing for the empty context-free data.
func SigningDigest(chainID string, packed []byte) ([]byte, error) {
	id, err := hex.DecodeString(chainID)
	if err != nil || len(id) != 32 {
		return nil, rpckit.Transport(fmt.Errorf("chain id %q is not 32 hex bytes", chainID))
	}
	h := sha256.New()
	h.Write(id)
	h.Write(packed)
	h.Write(make([]byte, 32))
	return h.Sum(nil), nil
}

func referenceBlockNum(head uint32, blocksBehind int) uint32 {
	if blocksBehind <= 0 {
		blocksBehind = DefaultBlocksBehind
	}
	if head <= uint32(blocksBehind) {
		return 1
	}
	return head - uint32(blocksBehind)
}
