package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"
)

// SolanaGateway implements TokenGateway over the SPL reward token. Wallet
// identities are base58 public keys; transfers move between the wallets'
// associated token accounts for the reward mint. The operator key pays fees
// and signs as the delegate authority granted by participating accounts —
// the gateway itself never mints or burns.
type SolanaGateway struct {
	rpc      *rpc.Client
	mint     solana.PublicKey
	operator solana.PrivateKey
	log      *logrus.Entry
}

func NewSolanaGateway(rpcEndpoint, mintAddress, operatorKeyBase58 string, log *logrus.Logger) (*SolanaGateway, error) {
	mint, err := solana.PublicKeyFromBase58(mintAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid reward mint address: %w", err)
	}
	operator, err := solana.PrivateKeyFromBase58(operatorKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid operator key: %w", err)
	}
	return &SolanaGateway{
		rpc:      rpc.New(rpcEndpoint),
		mint:     mint,
		operator: operator,
		log:      log.WithField("service", "solana-gateway"),
	}, nil
}

// OperatorWallet returns the operator's public key in base58, the fee payer
// of every engine-issued transfer.
func (g *SolanaGateway) OperatorWallet() string {
	return g.operator.PublicKey().String()
}

// Transfer moves amount reward tokens from one wallet to another. The
// sender's balance is checked first so a short balance surfaces as
// ErrInsufficientBalance without a rejected on-chain transaction.
func (g *SolanaGateway) Transfer(ctx context.Context, amount int64, from, to string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidAmount)
	}

	fromPub, err := solana.PublicKeyFromBase58(from)
	if err != nil {
		return fmt.Errorf("invalid source wallet: %w", err)
	}
	toPub, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return fmt.Errorf("invalid destination wallet: %w", err)
	}

	fromATA, _, err := solana.FindAssociatedTokenAddress(fromPub, g.mint)
	if err != nil {
		return fmt.Errorf("derive source token account: %w", err)
	}
	toATA, _, err := solana.FindAssociatedTokenAddress(toPub, g.mint)
	if err != nil {
		return fmt.Errorf("derive destination token account: %w", err)
	}

	balance, err := g.tokenBalance(ctx, fromATA)
	if err != nil {
		return fmt.Errorf("check source balance: %w", err)
	}
	if balance < uint64(amount) {
		return fmt.Errorf("%w: %d available, %d required", ErrInsufficientBalance, balance, amount)
	}

	recent, err := g.rpc.GetRecentBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return fmt.Errorf("get blockhash: %w", err)
	}

	instruction := token.NewTransferInstruction(
		uint64(amount),
		fromATA,
		toATA,
		g.operator.PublicKey(),
		nil,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		recent.Value.Blockhash,
		solana.TransactionPayer(g.operator.PublicKey()),
	)
	if err != nil {
		return fmt.Errorf("build transfer transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(g.operator.PublicKey()) {
			return &g.operator
		}
		return nil
	}); err != nil {
		return fmt.Errorf("sign transfer transaction: %w", err)
	}

	sig, err := g.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return fmt.Errorf("send transfer transaction: %w", err)
	}

	// Best-effort confirmation; the signature is logged either way so the
	// custody watcher can correlate it.
	if _, err := g.rpc.GetSignatureStatuses(ctx, true, sig); err != nil {
		g.log.WithError(err).WithField("signature", sig.String()).
			Warn("could not confirm transfer status")
	}

	g.log.WithFields(logrus.Fields{
		"signature": sig.String(),
		"amount":    amount,
		"from":      from,
		"to":        to,
	}).Info("reward token transfer sent")

	return nil
}

func (g *SolanaGateway) tokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	res, err := g.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, err
	}
	if res == nil || res.Value == nil {
		return 0, fmt.Errorf("empty balance response for %s", account)
	}
	return strconv.ParseUint(res.Value.Amount, 10, 64)
}
