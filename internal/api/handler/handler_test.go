package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/fhe-content-hub/config"
	"github.com/d60-Lab/fhe-content-hub/internal/access"
	"github.com/d60-Lab/fhe-content-hub/internal/api/handler"
	"github.com/d60-Lab/fhe-content-hub/internal/api/router"
	"github.com/d60-Lab/fhe-content-hub/internal/directory"
	"github.com/d60-Lab/fhe-content-hub/internal/model"
	"github.com/d60-Lab/fhe-content-hub/internal/store"
	"github.com/d60-Lab/fhe-content-hub/internal/wallet"
	"github.com/d60-Lab/fhe-content-hub/pkg/jwt"
)

const addr = "0xABC0000000000000000000000000000000000001"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	engine *gin.Engine
	mem    *store.MemoryStore
	dir    *directory.Client
}

func setup(t *testing.T, signer wallet.Signer) *testServer {
	t.Helper()
	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: gin.TestMode},
		Tracing: config.TracingConfig{ServiceName: "fhe-content-hub-test"},
	}
	mem := store.NewMemoryStore(0)
	dir := directory.NewClient(mem, access.NewChecker(config.AccessConfig{NFTThreshold: 0.3, TokenThreshold: 0.5}),
		config.DirectoryConfig{})
	t.Cleanup(dir.Close)

	tokens := jwt.NewManager("test-secret", time.Hour)
	h := handler.NewHandler(dir, tokens, signer)
	return &testServer{engine: router.Setup(cfg, h, tokens, dir), mem: mem, dir: dir}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *testServer) connect(t *testing.T, address string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/wallet/connect", gin.H{"address": address}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sess struct {
		Token    string `json:"token"`
		Checksum string `json:"checksum"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	require.NotEmpty(t, sess.Token)
	return sess.Token
}

type listed struct {
	ID        string             `json:"id"`
	Owner     string             `json:"owner"`
	Policy    model.AccessPolicy `json:"accessCondition"`
	HasAccess bool               `json:"hasAccess"`
	Decrypted string             `json:"decryptedContent"`
}

func (s *testServer) list(t *testing.T, query string) []listed {
	t.Helper()
	w, env := s.do(t, http.MethodGet, "/api/v1/contents"+query, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Total int      `json:"total"`
		List  []listed `json:"list"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, data.Total, len(data.List))
	return data.List
}

func TestHealth(t *testing.T) {
	s := setup(t, nil)
	w, _ := s.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	s.mem.SetAvailable(false)
	w, _ = s.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSubmitListDecrypt(t *testing.T) {
	s := setup(t, nil)
	token := s.connect(t, addr)

	in := gin.H{"title": "T", "content": "Hello", "category": "General", "accessCondition": "Public"}
	w, _ := s.do(t, http.MethodPost, "/api/v1/contents", in, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/v1/contents", in, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rec model.ContentRecord
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, addr, rec.Owner)

	items := s.list(t, "")
	require.Len(t, items, 1)
	assert.Equal(t, rec.ID, items[0].ID)
	assert.True(t, items[0].HasAccess)
	assert.Empty(t, items[0].Decrypted)

	w, env = s.do(t, http.MethodPost, "/api/v1/contents/"+rec.ID+"/decrypt", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var dec struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dec))
	assert.Equal(t, "Hello", dec.Content)

	assert.Equal(t, "Hello", s.list(t, "")[0].Decrypted)

	w, env = s.do(t, http.MethodGet, "/api/v1/status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var st directory.Status
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, directory.StateSuccess, st.State)
}

func TestSubmitValidation(t *testing.T) {
	s := setup(t, nil)
	token := s.connect(t, addr)

	w, _ := s.do(t, http.MethodPost, "/api/v1/contents", gin.H{"content": "no title"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitRejectedBySigner(t *testing.T) {
	s := setup(t, wallet.RejectAll)
	token := s.connect(t, addr)

	w, env := s.do(t, http.MethodPost, "/api/v1/contents", gin.H{"title": "T", "content": "B"}, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Transaction rejected by user", env.Message)
	assert.Zero(t, s.mem.Writes())
}

func TestReplacedSessionTokenRefused(t *testing.T) {
	s := setup(t, nil)
	first := s.connect(t, addr)
	second := s.connect(t, "0x0000000000000000000000000000000000000002")

	w, _ := s.do(t, http.MethodGet, "/api/v1/wallet", nil, first)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/wallet", nil, second)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/wallet", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDisconnect(t *testing.T) {
	s := setup(t, nil)
	token := s.connect(t, addr)

	w, _ := s.do(t, http.MethodPost, "/api/v1/wallet/disconnect", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, s.dir.Session())

	w, _ = s.do(t, http.MethodPost, "/api/v1/contents", gin.H{"title": "T", "content": "B"}, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSwitchAccount(t *testing.T) {
	s := setup(t, nil)
	token := s.connect(t, addr)

	const next = "0x0000000000000000000000000000000000000002"
	w, _ := s.do(t, http.MethodPost, "/api/v1/wallet/account", gin.H{"address": next}, token)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/v1/contents", gin.H{"title": "T", "content": "B"}, token)
	require.Equal(t, http.StatusOK, w.Code)
	var rec model.ContentRecord
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, next, rec.Owner)
}

func TestDecryptUnknownContent(t *testing.T) {
	s := setup(t, nil)
	token := s.connect(t, addr)
	w, _ := s.do(t, http.MethodPost, "/api/v1/contents/missing/decrypt", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/contents/missing/access", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchStatsAndAccess(t *testing.T) {
	s := setup(t, nil)
	token := s.connect(t, addr)
	for _, in := range []gin.H{
		{"title": "a", "content": "a", "category": "Art", "accessCondition": "Public"},
		{"title": "b", "content": "b", "category": "Science", "accessCondition": "NFT Holder"},
		{"title": "c", "content": "c", "category": "Art", "accessCondition": "Token Holder"},
	} {
		w, _ := s.do(t, http.MethodPost, "/api/v1/contents", in, token)
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Len(t, s.list(t, "?search=art"), 2)
	nft := s.list(t, "?search=NFT")
	require.Len(t, nft, 1)
	assert.Equal(t, model.AccessNFTHolder, nft[0].Policy)

	w, env := s.do(t, http.MethodGet, "/api/v1/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, model.Stats{Total: 3, Public: 1, NFTRestricted: 1, TokenRestricted: 1}, stats)

	public := s.list(t, "?search=public")
	require.Len(t, public, 1)
	w, env = s.do(t, http.MethodGet, "/api/v1/contents/"+public[0].ID+"/access", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var acc struct {
		HasAccess bool `json:"hasAccess"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &acc))
	assert.True(t, acc.HasAccess)
}

func TestReconcile(t *testing.T) {
	s := setup(t, nil)
	token := s.connect(t, addr)

	raw, err := model.EncodeRecord(model.ContentRecord{ID: "orphan", Payload: "FHE-e30=", PublishedAt: 1, Owner: addr})
	require.NoError(t, err)
	s.mem.Put(model.RecordKey("orphan"), raw)

	w, env := s.do(t, http.MethodPost, "/api/v1/contents/reconcile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Reindexed int `json:"reindexed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 1, out.Reindexed)
	assert.Len(t, s.list(t, ""), 1)
}

func TestCategories(t *testing.T) {
	s := setup(t, nil)
	w, env := s.do(t, http.MethodGet, "/api/v1/categories", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"default":"General"`)
}
