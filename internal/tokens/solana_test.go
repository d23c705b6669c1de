package tokens

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinax-network/token-api-scraper/internal/rpc"
	"github.com/pinax-network/token-api-scraper/internal/solana"
)

func splMint(authority *solana.Pubkey, supply uint64, decimals uint8) []byte {
	data := make([]byte, 82)
	if authority != nil {
		binary.LittleEndian.PutUint32(data[0:4], 1)
		copy(data[4:36], authority[:])
	}
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1
	return data
}

func metaplexAccount(name, symbol string) []byte {
	pad := func(s string, size int) []byte {
		out := make([]byte, 4+size)
		binary.LittleEndian.PutUint32(out, uint32(size))
		copy(out[4:], s)
		return out
	}
	var buf []byte
	buf = append(buf, 4)
	buf = append(buf, make([]byte, 64)...)
	buf = append(buf, pad(name, 32)...)
	buf = append(buf, pad(symbol, 10)...)
	buf = append(buf, pad("", 200)...)
	buf = append(buf, 0, 0, 0)
	return buf
}

type fakeAccount struct {
	data  []byte
	owner string
}

// solanaNode serves getAccountInfo and getProgramAccounts from fixed maps.
func solanaNode(t *testing.T, accounts map[string]fakeAccount, pools map[string][]rpc.KeyedAccount) *rpc.SolanaClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpc.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		params := req.Params.([]any)

		var result any
		switch req.Method {
		case "getAccountInfo":
			if acct, ok := accounts[params[0].(string)]; ok {
				result = map[string]any{
					"context": map[string]any{"slot": 1},
					"value": map[string]any{
						"data":  []string{base64.StdEncoding.EncodeToString(acct.data), "base64"},
						"owner": acct.owner,
					},
				}
			} else {
				result = map[string]any{"context": map[string]any{"slot": 1}, "value": nil}
			}
		case "getProgramAccounts":
			rows := pools[params[0].(string)]
			if rows == nil {
				rows = []rpc.KeyedAccount{}
			}
			result = rows
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(server.Close)
	return rpc.NewSolanaClient(server.URL, nil, nil, fastOpts())
}

func TestSolanaService_FetchToken_Metaplex(t *testing.T) {
	pda, err := solana.MetadataPDA(solana.USDCMint)
	require.NoError(t, err)

	client := solanaNode(t, map[string]fakeAccount{
		solana.USDCMintStr: {splMint(nil, 1_000_000_000, 6), solana.TokenProgramStr},
		pda.String():       {metaplexAccount("USD Coin", "USDC"), solana.TokenMetadataProgramStr},
	}, nil)

	service := NewSolanaService(client)
	token, err := service.FetchToken(context.Background(), solana.USDCMintStr)
	require.NoError(t, err)
	require.NotNil(t, token)

	assert.Equal(t, "solana", token.Chain)
	assert.Equal(t, "USD Coin", token.Name)
	assert.Equal(t, "USDC", token.Symbol)
	assert.Equal(t, uint8(6), token.Decimals)
	assert.Equal(t, "1000", token.TotalSupply.String())
	assert.Nil(t, token.LP)
}

func TestSolanaService_FetchToken_Missing(t *testing.T) {
	client := solanaNode(t, nil, nil)
	service := NewSolanaService(client)

	token, err := service.FetchToken(context.Background(), solana.USDCMintStr)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestSolanaService_FetchToken_InvalidMint(t *testing.T) {
	client := solanaNode(t, nil, nil)
	service := NewSolanaService(client)

	_, err := service.FetchToken(context.Background(), "0xdac17f958d2ee523a2206206994597c13d831ec7")
	require.Error(t, err)
}

func TestSolanaService_FetchToken_NotAMint(t *testing.T) {
	client := solanaNode(t, map[string]fakeAccount{
		solana.USDCMintStr: {make([]byte, 10), solana.TokenProgramStr},
	}, nil)
	service := NewSolanaService(client)

	_, err := service.FetchToken(context.Background(), solana.USDCMintStr)
	require.Error(t, err)
}

func TestSolanaService_FetchToken_LPMint(t *testing.T) {
	lpMint := solana.PubkeyFromBase58("8HoQnePLqPj4M7PUDzfw8e3Ymdwgc7NUGz2JHHithKBD")
	poolKey := solana.PubkeyFromBase58("58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2")

	poolData := make([]byte, 752)
	copy(poolData[400:], solana.WSOLMint[:])
	copy(poolData[432:], solana.USDCMint[:])
	copy(poolData[464:], lpMint[:])

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

	service := NewSolanaService(client)
	token, err := service.FetchToken(context.Background(), lpMint.String())
	require.NoError(t, err)
	require.NotNil(t, token)

	assert.Equal(t, "Raydium (SOL-USDC) LP Token", token.Symbol)
	require.NotNil(t, token.LP)
	assert.Equal(t, "Raydium", token.LP.Protocol)
	assert.Equal(t, poolKey.String(), token.LP.Pool)
	assert.Equal(t, "5", token.TotalSupply.String())
}
