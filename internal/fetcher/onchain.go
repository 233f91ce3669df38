package fetcher

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	aggregatorABIJSON = `[{"inputs":[],"name":"latestRoundData","outputs":[{"internalType":"uint80","name":"roundId","type":"uint80"},{"internalType":"int256","name":"answer","type":"int256"},{"internalType":"uint256","name":"startedAt","type":"uint256"},{"internalType":"uint256","name":"updatedAt","type":"uint256"},{"internalType":"uint80","name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"}]`

	// Chainlink BTC/USD feeds report with 8 decimals.
	feedDecimals = 8
)

var aggregatorABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		panic("failed to parse aggregator ABI: " + err.Error())
	}
	aggregatorABI = parsed
}

// OnchainOptions parameterise the on-chain reference fetcher.
type OnchainOptions struct {
	RPCURL      string
	FeedAddress string
	Timeout     time.Duration
}

// Onchain reads the Chainlink BTC/USD aggregator over Ethereum RPC. It is an
// independent sanity reference for the CoinGecko spot price, never a data
// source for the cache.
type Onchain struct {
	opts      OnchainOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewOnchain builds a new on-chain reference fetcher.
func NewOnchain(opts OnchainOptions, logger zerolog.Logger) *Onchain {
	return &Onchain{opts: opts, logger: logger.With().Str("component", "onchain_fetcher").Logger()}
}

// FetchReference retrieves the latest BTC/USD answer from the feed.
func (o *Onchain) FetchReference(ctx context.Context) (decimal.Decimal, error) {
	if o.opts.RPCURL == "" {
		return decimal.Decimal{}, errors.New("ethereum rpc url not configured")
	}
	if o.opts.FeedAddress == "" {
		return decimal.Decimal{}, errors.New("price feed address not configured")
	}

	timeout := o.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := o.getClient(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	addr := common.HexToAddress(o.opts.FeedAddress)

	payload, err := aggregatorABI.Pack("latestRoundData")
	if err != nil {
		return decimal.Decimal{}, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}

	outputs, err := aggregatorABI.Unpack("latestRoundData", res)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if len(outputs) != 5 {
		return decimal.Decimal{}, errors.New("unexpected latestRoundData response")
	}

	answer, ok := outputs[1].(*big.Int)
	if !ok || answer.Sign() <= 0 {
		return decimal.Decimal{}, errors.New("feed returned non-positive answer")
	}

	return decimal.NewFromBigInt(answer, -feedDecimals), nil
}

func (o *Onchain) getClient(ctx context.Context) (*ethclient.Client, error) {
	o.clientMux.Lock()
	defer o.clientMux.Unlock()

	if o.client != nil {
		return o.client, nil
	}

	client, err := ethclient.DialContext(ctx, o.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	o.client = client
	return client, nil
}

var _ ReferencePriceFetcher = (*Onchain)(nil)
