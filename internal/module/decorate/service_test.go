package decorate

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/restyle/server/internal/module/ledger"
	"github.com/restyle/server/internal/module/synthesis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLedger is an in-memory Repository with the same conditional-update
// semantics as the real one.
type fakeLedger struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*ledger.Account

	getErr   error
	debitErr error

	debits           int
	credits          int
	lastCreditCtxErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{accounts: make(map[uuid.UUID]*ledger.Account)}
}

func (f *fakeLedger) add(userID uuid.UUID, balance int64, role ledger.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[userID] = &ledger.Account{UserID: userID, Balance: balance, Role: role}
}

func (f *fakeLedger) balance(userID uuid.UUID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[userID].Balance
}

func (f *fakeLedger) Get(ctx context.Context, userID uuid.UUID) (*ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	account, ok := f.accounts[userID]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeLedger) DebitOne(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debitErr != nil {
		return f.debitErr
	}
	account, ok := f.accounts[userID]
	if !ok || account.Balance < 1 {
		return ledger.ErrInsufficientCredits
	}
	account.Balance--
	f.debits++
	return nil
}

func (f *fakeLedger) CreditOne(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[userID]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	account.Balance++
	f.credits++
	f.lastCreditCtxErr = ctx.Err()
	return nil
}

func (f *fakeLedger) Grant(ctx context.Context, userID uuid.UUID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[userID]
	if !ok {
		f.accounts[userID] = &ledger.Account{UserID: userID, Balance: amount, Role: ledger.RoleNormal}
		return nil
	}
	account.Balance += amount
	return nil
}

// fakeSynth returns whatever its fn returns and counts calls.
type fakeSynth struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, req *synthesis.Request) (*synthesis.Image, error)
	calls int
}

func (f *fakeSynth) Name() string { return "fake" }

func (f *fakeSynth) Synthesize(ctx context.Context, req *synthesis.Request) (*synthesis.Image, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, req)
}

func (f *fakeSynth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func synthOK() *fakeSynth {
	return &fakeSynth{fn: func(ctx context.Context, req *synthesis.Request) (*synthesis.Image, error) {
		return &synthesis.Image{Data: []byte("generated"), MimeType: "image/png"}, nil
	}}
}

func synthErr(err error) *fakeSynth {
	return &fakeSynth{fn: func(ctx context.Context, req *synthesis.Request) (*synthesis.Image, error) {
		return nil, err
	}}
}

func validRequest() *Request {
	return &Request{
		ImageData:       []byte("photo"),
		MimeType:        "image/jpeg",
		StyleName:       "scandinavian",
		RoomDescription: "a small bedroom",
	}
}

func TestDecorate_Success(t *testing.T) {
	// Balance 3, synthesis succeeds: balance ends at 2
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 3, ledger.RoleNormal)
	synth := synthOK()
	svc := NewService(fl, synth, nil, nil)

	result, err := svc.Decorate(context.Background(), userID, validRequest())
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("generated")), result.Base64Image)
	assert.Equal(t, "image/png", result.MimeType)
	assert.Equal(t, int64(2), fl.balance(userID))
	assert.Equal(t, 1, synth.callCount())
	assert.Equal(t, 0, fl.credits)
}

func TestDecorate_ZeroBalance(t *testing.T) {
	// Balance 0, non-admin: quota exceeded, provider never called
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 0, ledger.RoleNormal)
	synth := synthOK()
	svc := NewService(fl, synth, nil, nil)

	_, err := svc.Decorate(context.Background(), userID, validRequest())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 0, synth.callCount())
	assert.Equal(t, int64(0), fl.balance(userID))
}

func TestDecorate_ContentBlocked_RollsBack(t *testing.T) {
	// Balance 2, safety block: balance restored to 2, not 1
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 2, ledger.RoleNormal)
	svc := NewService(fl, synthErr(synthesis.ErrContentBlocked), nil, nil)

	_, err := svc.Decorate(context.Background(), userID, validRequest())
	assert.ErrorIs(t, err, synthesis.ErrContentBlocked)
	assert.Equal(t, int64(2), fl.balance(userID))
	assert.Equal(t, 1, fl.debits)
	assert.Equal(t, 1, fl.credits)
}

func TestDecorate_InvalidInput_NoLedgerAccess(t *testing.T) {
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 5, ledger.RoleNormal)
	synth := synthOK()
	svc := NewService(fl, synth, nil, nil)

	tests := []struct {
		name string
		req  *Request
	}{
		{"missing style", &Request{ImageData: []byte("x"), MimeType: "image/png", RoomDescription: "a room"}},
		{"missing description", &Request{ImageData: []byte("x"), MimeType: "image/png", StyleName: "boho"}},
		{"empty image", &Request{MimeType: "image/png", StyleName: "boho", RoomDescription: "a room"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Decorate(context.Background(), userID, tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	assert.Equal(t, 0, synth.callCount())
	assert.Equal(t, 0, fl.debits)
	assert.Equal(t, int64(5), fl.balance(userID))
}

func TestDecorate_AdminBypassesQuota(t *testing.T) {
	// Admin with balance 0 still gets a generation and is never debited
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 0, ledger.RoleAdmin)
	synth := synthOK()
	svc := NewService(fl, synth, nil, nil)

	result, err := svc.Decorate(context.Background(), userID, validRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Base64Image)
	assert.Equal(t, int64(0), fl.balance(userID))
	assert.Equal(t, 0, fl.debits)
	assert.Equal(t, 0, fl.credits)
}

func TestDecorate_AdminNoRollbackOnFailure(t *testing.T) {
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 0, ledger.RoleAdmin)
	svc := NewService(fl, synthErr(errors.New("connection reset")), nil, nil)

	_, err := svc.Decorate(context.Background(), userID, validRequest())
	assert.ErrorIs(t, err, ErrSynthesisFailed)
	assert.Equal(t, 0, fl.credits)
}

func TestDecorate_FaultAfterDebit_RollsBack(t *testing.T) {
	// Network fault mid-call: balance restored to pre-request value
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 4, ledger.RoleNormal)
	svc := NewService(fl, synthErr(errors.New("connection reset by peer")), nil, nil)

	_, err := svc.Decorate(context.Background(), userID, validRequest())
	assert.ErrorIs(t, err, ErrSynthesisFailed)
	assert.Equal(t, int64(4), fl.balance(userID))
	assert.Equal(t, 1, fl.debits)
	assert.Equal(t, 1, fl.credits)
}

func TestDecorate_NoImage_RollsBack(t *testing.T) {
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 1, ledger.RoleNormal)
	svc := NewService(fl, synthErr(synthesis.ErrNoImage), nil, nil)

	_, err := svc.Decorate(context.Background(), userID, validRequest())
	assert.ErrorIs(t, err, ErrSynthesisFailed)
	assert.Equal(t, int64(1), fl.balance(userID))
}

func TestDecorate_RateLimited_RollsBack(t *testing.T) {
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 2, ledger.RoleNormal)
	svc := NewService(fl, synthErr(synthesis.ErrRateLimited), nil, nil)

	_, err := svc.Decorate(context.Background(), userID, validRequest())
	assert.ErrorIs(t, err, synthesis.ErrRateLimited)
	assert.Equal(t, int64(2), fl.balance(userID))
}

func TestDecorate_UnknownAccount(t *testing.T) {
	fl := newFakeLedger()
	synth := synthOK()
	svc := NewService(fl, synth, nil, nil)

	_, err := svc.Decorate(context.Background(), uuid.New(), validRequest())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 0, synth.callCount())
}

func TestDecorate_LedgerReadFailure(t *testing.T) {
	fl := newFakeLedger()
	fl.getErr = errors.New("connection refused")
	synth := synthOK()
	svc := NewService(fl, synth, nil, nil)

	_, err := svc.Decorate(context.Background(), uuid.New(), validRequest())
	assert.ErrorIs(t, err, ErrLedger)
	assert.Equal(t, 0, synth.callCount())
}

func TestDecorate_DebitFailure_NoSynthesisCall(t *testing.T) {
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 3, ledger.RoleNormal)
	fl.debitErr = errors.New("write timeout")
	synth := synthOK()
	svc := NewService(fl, synth, nil, nil)

	_, err := svc.Decorate(context.Background(), userID, validRequest())
	assert.ErrorIs(t, err, ErrLedger)
	assert.Equal(t, 0, synth.callCount())
	assert.Equal(t, int64(3), fl.balance(userID))
}

func TestDecorate_NotIdempotent(t *testing.T) {
	// Two successful runs of the same logical request debit twice
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 2, ledger.RoleNormal)
	svc := NewService(fl, synthOK(), nil, nil)

	for i := 0; i < 2; i++ {
		_, err := svc.Decorate(context.Background(), userID, validRequest())
		require.NoError(t, err)
	}
	assert.Equal(t, int64(0), fl.balance(userID))
	assert.Equal(t, 2, fl.debits)
}

func TestDecorate_ConcurrentRequestsWithOneCredit(t *testing.T) {
	// Two simultaneous requests, balance 1: exactly one succeeds and the
	// balance never goes negative
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 1, ledger.RoleNormal)
	svc := NewService(fl, synthOK(), nil, nil)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Decorate(context.Background(), userID, validRequest())
		}(i)
	}
	wg.Wait()

	var successes, quotaErrs int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrQuotaExceeded):
			quotaErrs++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, quotaErrs)
	assert.Equal(t, int64(0), fl.balance(userID))
	assert.GreaterOrEqual(t, fl.balance(userID), int64(0))
}

func TestDecorate_RollbackSurvivesRequestCancellation(t *testing.T) {
	// The client disconnecting mid-synthesis must not strand the debit
	fl := newFakeLedger()
	userID := uuid.New()
	fl.add(userID, 1, ledger.RoleNormal)

	ctx, cancel := context.WithCancel(context.Background())
	synth := &fakeSynth{fn: func(ctx context.Context, req *synthesis.Request) (*synthesis.Image, error) {
		cancel() // simulate disconnect while the provider call is in flight
		return nil, ctx.Err()
	}}
	svc := NewService(fl, synth, nil, nil)

	_, err := svc.Decorate(ctx, userID, validRequest())
	assert.ErrorIs(t, err, ErrSynthesisFailed)
	assert.Equal(t, int64(1), fl.balance(userID))
	// The rollback write ran on a live context despite the cancellation
	assert.NoError(t, fl.lastCreditCtxErr)
}
