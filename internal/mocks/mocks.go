package mocks

import (
	"context"
	"math/big"
	"sync"
	"time"

	"nftrelay/service/internal/models"
	"nftrelay/service/internal/stores"
)

// MockChainClient implements services.ChainClient with overridable funcs and call counters.
type MockChainClient struct {
	ReadContractFn      func(ctx context.Context, method string, args []*big.Int) ([]*big.Int, error)
	SubmitFn            func(ctx context.Context, call models.Call) (models.TransactionHandle, error)
	AwaitStatusFn       func(ctx context.Context, hash string) (models.TxStatus, error)
	TransactionStatusFn func(ctx context.Context, hash string) (models.TxStatus, error)
	PingErr             error

	mu        sync.Mutex
	reads     []string
	submitted []models.Call
	awaited   []string
	lookups   int
}

func (m *MockChainClient) ReadContract(ctx context.Context, method string, args []*big.Int) ([]*big.Int, error) {
	m.mu.Lock()
	m.reads = append(m.reads, method)
	m.mu.Unlock()
	if m.ReadContractFn != nil {
		return m.ReadContractFn(ctx, method, args)
	}
	return []*big.Int{big.NewInt(0), big.NewInt(0)}, nil
}

func (m *MockChainClient) Submit(ctx context.Context, call models.Call) (models.TransactionHandle, error) {
	m.mu.Lock()
	m.submitted = append(m.submitted, call)
	m.mu.Unlock()
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, call)
	}
	return models.TransactionHandle{Hash: "0x1"}, nil
}

func (m *MockChainClient) AwaitStatus(ctx context.Context, hash string) (models.TxStatus, error) {
	m.mu.Lock()
	m.awaited = append(m.awaited, hash)
	m.mu.Unlock()
	if m.AwaitStatusFn != nil {
		return m.AwaitStatusFn(ctx, hash)
	}
	return models.TxStatus{Finality: models.FinalityAcceptedOnL2, Execution: models.ExecutionSucceeded}, nil
}

func (m *MockChainClient) TransactionStatus(ctx context.Context, hash string) (models.TxStatus, error) {
	m.mu.Lock()
	m.lookups++
	m.mu.Unlock()
	if m.TransactionStatusFn != nil {
		return m.TransactionStatusFn(ctx, hash)
	}
	return models.TxStatus{Finality: models.FinalityAcceptedOnL2, Execution: models.ExecutionSucceeded}, nil
}

func (m *MockChainClient) Ping(ctx context.Context) error {
	return m.PingErr
}

// Reads returns the methods passed to ReadContract, in call order.
func (m *MockChainClient) Reads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reads...)
}

func (m *MockChainClient) Submitted() []models.Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Call(nil), m.submitted...)
}

func (m *MockChainClient) Awaited() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.awaited...)
}

// TotalCalls counts every chain interaction except Ping.
func (m *MockChainClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reads) + len(m.submitted) + len(m.awaited) + m.lookups
}

// MockSigner returns fixed signature values.
type MockSigner struct {
	R, S   *big.Int
	Pub    *big.Int
	Err    error
	Hashes []*big.Int
}

func (f *MockSigner) Sign(ctx context.Context, hash *big.Int) (*big.Int, *big.Int, error) {
	f.Hashes = append(f.Hashes, new(big.Int).Set(hash))
	if f.Err != nil {
		return nil, nil, f.Err
	}
	r, s := f.R, f.S
	if r == nil {
		r = big.NewInt(1)
	}
	if s == nil {
		s = big.NewInt(2)
	}
	return r, s, nil
}

func (f *MockSigner) PublicKey() *big.Int {
	if f.Pub == nil {
		return big.NewInt(0)
	}
	return f.Pub
}

// MockIdempotencyStore is an in-memory stores.IdempotencyStore.
type MockIdempotencyStore struct {
	GetErr  error
	SaveErr error
	Now     func() time.Time

	mu      sync.Mutex
	records map[string]stores.IdempotencyRecord
	saves   int
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{records: make(map[string]stores.IdempotencyRecord)}
}

func (f *MockIdempotencyStore) Get(ctx context.Context, key string) (*stores.IdempotencyRecord, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[key]
	if !ok {
		return nil, stores.ErrRecordNotFound
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	if !rec.ExpiresAt.IsZero() && now().After(rec.ExpiresAt) {
		delete(f.records, key)
		return nil, stores.ErrRecordNotFound
	}
	return &rec, nil
}

func (f *MockIdempotencyStore) Save(ctx context.Context, key string, record stores.IdempotencyRecord) error {
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records == nil {
		f.records = make(map[string]stores.IdempotencyRecord)
	}
	f.records[key] = record
	f.saves++
	return nil
}

func (f *MockIdempotencyStore) Saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func (f *MockIdempotencyStore) Close() error { return nil }
