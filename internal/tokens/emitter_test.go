package tokens

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinax-network/token-api-scraper/internal/rpc"
	"github.com/pinax-network/token-api-scraper/internal/solana"
	"github.com/pinax-network/token-api-scraper/pkg/events"
)

// recordingEmitter captures events in memory instead of publishing them.
type recordingEmitter struct {
	mu     sync.Mutex
	events []events.ScraperEvent
}

func (r *recordingEmitter) Emit(event events.ScraperEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) EmitToken(chain string, token any) error {
	return r.Emit(events.ScraperEvent{Type: events.TokenEventType, Chain: chain, Data: token})
}

func (r *recordingEmitter) EmitPool(chain string, pool any) error {
	return r.Emit(events.ScraperEvent{Type: events.PoolEventType, Chain: chain, Data: pool})
}

func (r *recordingEmitter) EmitError(chain string, err error) error {
	return r.Emit(events.ScraperEvent{Type: events.ErrorEventType, Chain: chain, Data: err.Error()})
}

func (r *recordingEmitter) Close() {}

func (r *recordingEmitter) byType(typ string) []events.ScraperEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.ScraperEvent
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestEVMService_FetchTokens_EmitsErrorEvents(t *testing.T) {
	rec := &recordingEmitter{}
	client := erc20Server(t, nil, usdtAnswers)
	service := NewEVMService(client, "eth", WithEmitter(rec))

	tokens, err := service.FetchTokens(context.Background(), []string{usdtContract, "bogus"})
	require.Error(t, err)
	require.Len(t, tokens, 2)

	require.Len(t, rec.byType(events.TokenEventType), 1)
	errs := rec.byType(events.ErrorEventType)
	require.Len(t, errs, 1)
	assert.Equal(t, "eth", errs[0].Chain)
	assert.Contains(t, errs[0].Data.(string), "bogus")
}

func TestSolanaService_FetchToken_EmitsPoolEvent(t *testing.T) {
	lpMint := solana.PubkeyFromBase58("8HoQnePLqPj4M7PUDzfw8e3Ymdwgc7NUGz2JHHithKBD")
	poolKey := solana.PubkeyFromBase58("58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2")

	poolData := make([]byte, 752)
	copy(poolData[400:], solana.WSOLMint[:])
	copy(poolData[432:], solana.USDCMint[:])
	copy(poolData[464:], lpMint[:])

	rec := &recordingEmitter{}
	client := solanaNode(t, map[string]fakeAccount{
		lpMint.String(): {splMint(&solana.RaydiumV4Authority, 5_000_000_000, 9), solana.TokenProgramStr},
	}, map[string][]rpc.KeyedAccount{
		solana.RaydiumV4ProgramStr: {{
			Pubkey: poolKey.String(),
			Account: rpc.AccountInfo{
				Data:  []string{base64.StdEncoding.EncodeToString(poolData), "base64"},
				Owner: solana.RaydiumV4ProgramStr,
			},
		}},
	})

	service := NewSolanaService(client, WithSolanaEmitter(rec))
	token, err := service.FetchToken(context.Background(), lpMint.String())
	require.NoError(t, err)
	require.NotNil(t, token.LP)

	pools := rec.byType(events.PoolEventType)
	require.Len(t, pools, 1)
	assert.Equal(t, "solana", pools[0].Chain)
	lp, ok := pools[0].Data.(*solana.LPToken)
	require.True(t, ok)
	assert.Equal(t, poolKey.String(), lp.Pool)
	require.Len(t, rec.byType(events.TokenEventType), 1)
}
