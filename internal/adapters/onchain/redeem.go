package onchain

// redeem.go — on-chain CTF redemption for resolved Polymarket positions
// (ports.RedeemExecutor). redeemPositions() burns the winning outcome
// tokens held by the caller and pays out USDC.e 1:1; it needs no prior
// approval since it only ever moves the caller's own balance.

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	polygonChainID = int64(137)

	usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
	ctfAddress   = "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"

	redeemGasLimit          = uint64(150_000)
	gasPriceUpdateInterval  = 5 * time.Minute
	receiptWaitTimeout      = 60 * time.Second
)

var redeemABI abi.ABI

func init() {
	var err error
	redeemABI, err = abi.JSON(strings.NewReader(`[{
		"name": "redeemPositions",
		"type": "function",
		"inputs": [
			{"name": "collateralToken", "type": "address"},
			{"name": "parentCollectionId", "type": "bytes32"},
			{"name": "conditionId", "type": "bytes32"},
			{"name": "indexSets", "type": "uint256[]"}
		],
		"outputs": []
	}]`))
	if err != nil {
		panic("redeem abi parse: " + err.Error())
	}
}

// RedeemClient implements ports.RedeemExecutor.
type RedeemClient struct {
	client     *ethclient.Client
	privateKey []byte
	address    common.Address

	mu           sync.RWMutex
	cachedGasWei *big.Int
	gasUpdatedAt time.Time
}

// NewRedeemClient builds a redeem executor against the given Polygon RPC.
// privateKeyHex is without the 0x prefix.
func NewRedeemClient(rpcURL, privateKeyHex string) (*RedeemClient, error) {
	pkBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("redeem: decode private key: %w", err)
	}

	privKey, err := crypto.ToECDSA(pkBytes)
	if err != nil {
		return nil, fmt.Errorf("redeem: invalid private key: %w", err)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("redeem: dial rpc %s: %w", rpcURL, err)
	}

	return &RedeemClient{
		client:     client,
		privateKey: pkBytes,
		address:    crypto.PubkeyToAddress(privKey.PublicKey),
	}, nil
}

// Redeem claims the USDC.e payout for a resolved binary market's winning
// side held by this wallet, per ports.RedeemExecutor.
func (rc *RedeemClient) Redeem(ctx context.Context, conditionID string) (string, error) {
	condBytes, err := hexToBytes32(conditionID)
	if err != nil {
		return "", fmt.Errorf("redeem: invalid conditionID: %w", err)
	}

	indexSets := []*big.Int{big.NewInt(1), big.NewInt(2)}
	callData, err := redeemABI.Pack("redeemPositions",
		common.HexToAddress(usdcEAddress),
		[32]byte{},
		condBytes,
		indexSets,
	)
	if err != nil {
		return "", fmt.Errorf("redeem: pack calldata: %w", err)
	}

	privKey, err := crypto.ToECDSA(rc.privateKey)
	if err != nil {
		return "", fmt.Errorf("redeem: private key: %w", err)
	}

	nonce, err := rc.client.PendingNonceAt(ctx, rc.address)
	if err != nil {
		return "", fmt.Errorf("redeem: nonce: %w", err)
	}

	gasPrice, err := rc.getGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("redeem: gas price: %w", err)
	}

	ctfAddr := common.HexToAddress(ctfAddress)
	gasEstimate, err := rc.client.EstimateGas(ctx, ethereum.CallMsg{
		From:     rc.address,
		To:       &ctfAddr,
		GasPrice: gasPrice,
		Data:     callData,
	})
	if err != nil {
		gasEstimate = redeemGasLimit
	}
	gasEstimate = gasEstimate * 12 / 10 // 20% buffer

	tx := types.NewTransaction(nonce, ctfAddr, big.NewInt(0), gasEstimate, gasPrice, callData)
	chainID := big.NewInt(polygonChainID)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), privKey)
	if err != nil {
		return "", fmt.Errorf("redeem: sign tx: %w", err)
	}

	if err := rc.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("redeem: send tx: %w", err)
	}

	txHash := signedTx.Hash().Hex()

	receiptCtx, cancel := context.WithTimeout(ctx, receiptWaitTimeout)
	defer cancel()
	receipt, err := rc.waitForReceipt(receiptCtx, signedTx.Hash())
	if err != nil {
		// Sent but unconfirmed within the wait window; the caller retries
		// the redeem check on its next sweep rather than blocking on it.
		return txHash, nil
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return txHash, fmt.Errorf("redeem: tx reverted: %s", txHash)
	}

	return txHash, nil
}

func (rc *RedeemClient) getGasPrice(ctx context.Context) (*big.Int, error) {
	rc.mu.RLock()
	cached := rc.cachedGasWei
	updatedAt := rc.gasUpdatedAt
	rc.mu.RUnlock()

	if cached != nil && time.Since(updatedAt) < gasPriceUpdateInterval {
		return cached, nil
	}

	price, err := rc.client.SuggestGasPrice(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return big.NewInt(30_000_000_000), nil // 30 gwei fallback
	}

	buffered := new(big.Int).Mul(price, big.NewInt(11))
	buffered.Div(buffered, big.NewInt(10))

	rc.mu.Lock()
	rc.cachedGasWei = buffered
	rc.gasUpdatedAt = time.Now()
	rc.mu.Unlock()

	return buffered, nil
}

func (rc *RedeemClient) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := rc.client.TransactionReceipt(ctx, txHash)
			if err != nil {
				continue
			}
			return receipt, nil
		}
	}
}

func hexToBytes32(s string) ([32]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 64 {
		return [32]byte{}, fmt.Errorf("expected 64 hex chars, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return [32]byte{}, err
	}
	var arr [32]byte
	copy(arr[:], b)
	return arr, nil
}
