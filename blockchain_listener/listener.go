// Package blockchain_listener watches the platform custody wallet on Solana.
// Custody may only be debited by transfers the engine itself issued, so any
// finalized debit not signed by the operator is flagged for reconciliation.
package blockchain_listener

import (
	"context"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/sirupsen/logrus"
)

// CustodyWatcher subscribes to transactions mentioning the custody wallet
// and audits token balance movements against the engine's operator key.
type CustodyWatcher struct {
	rpcClient *rpc.Client
	wsClient  *ws.Client
	custody   solana.PublicKey
	mint      solana.PublicKey
	operator  solana.PublicKey
	log       *logrus.Entry
}

func NewCustodyWatcher(ctx context.Context, rpcEndpoint, wsEndpoint, custodyWallet, rewardMint, operatorWallet string, log *logrus.Logger) (*CustodyWatcher, error) {
	custody, err := solana.PublicKeyFromBase58(custodyWallet)
	if err != nil {
		return nil, err
	}
	mint, err := solana.PublicKeyFromBase58(rewardMint)
	if err != nil {
		return nil, err
	}
	operator, err := solana.PublicKeyFromBase58(operatorWallet)
	if err != nil {
		return nil, err
	}

	wsClient, err := ws.Connect(ctx, wsEndpoint)
	if err != nil {
		return nil, err
	}

	return &CustodyWatcher{
		rpcClient: rpc.New(rpcEndpoint),
		wsClient:  wsClient,
		custody:   custody,
		mint:      mint,
		operator:  operator,
		log:       log.WithField("component", "custody-watcher"),
	}, nil
}

// Run blocks, processing finalized transactions that mention the custody
// wallet until ctx is cancelled.
func (w *CustodyWatcher) Run(ctx context.Context) {
	w.log.WithField("custody", w.custody.String()).Info("custody watcher started")

	sub, err := w.wsClient.LogsSubscribeMentions(w.custody, rpc.CommitmentFinalized)
	if err != nil {
		w.log.WithError(err).Error("failed to subscribe to custody logs")
		return
	}
	defer sub.Unsubscribe()

	for {
		got, err := sub.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.WithError(err).Warn("log subscription receive failed, retrying")
			time.Sleep(5 * time.Second)
			continue
		}
		if got.Value.Err != nil {
			continue // failed transactions cannot move custody
		}
		w.processTransaction(ctx, got.Value.Signature)
	}
}

// processTransaction fetches a finalized transaction and compares the
// custody wallet's reward-token balance before and after.
func (w *CustodyWatcher) processTransaction(ctx context.Context, signature solana.Signature) {
	txResp, err := w.rpcClient.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Commitment: rpc.CommitmentFinalized,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		w.log.WithError(err).WithField("signature", signature.String()).
			Warn("failed to fetch custody transaction")
		return
	}
	if txResp == nil || txResp.Meta == nil {
		return
	}

	delta := w.custodyDelta(txResp.Meta)
	if delta >= 0 {
		return // credits and no-ops need no audit
	}

	entry := w.log.WithFields(logrus.Fields{
		"signature": signature.String(),
		"debit":     -delta,
	})

	tx, err := txResp.Transaction.GetTransaction()
	if err != nil || tx == nil || len(tx.Message.AccountKeys) == 0 {
		entry.Warn("custody debit with undecodable transaction")
		return
	}

	// The engine funds every transfer it issues, so the fee payer of a
	// legitimate debit is always the operator.
	if !tx.Message.AccountKeys[0].Equals(w.operator) {
		entry.WithField("fee_payer", tx.Message.AccountKeys[0].String()).
			Error("custody debited outside the engine; manual reconciliation required")
		return
	}
	entry.Debug("custody debit matches engine-issued transfer")
}

// custodyDelta returns the net reward-token movement of the custody wallet
// in this transaction, in base units.
func (w *CustodyWatcher) custodyDelta(meta *rpc.TransactionMeta) int64 {
	pre := w.custodyAmount(meta.PreTokenBalances)
	post := w.custodyAmount(meta.PostTokenBalances)
	return post - pre
}

func (w *CustodyWatcher) custodyAmount(balances []rpc.TokenBalance) int64 {
	for _, balance := range balances {
		if balance.Owner == nil || !balance.Owner.Equals(w.custody) {
			continue
		}
		if !balance.Mint.Equals(w.mint) {
			continue
		}
		amount, err := strconv.ParseInt(balance.UiTokenAmount.Amount, 10, 64)
		if err != nil {
			continue
		}
		return amount
	}
	return 0
}
