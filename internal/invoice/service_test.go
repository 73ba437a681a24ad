package invoice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/lock"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

type fixedNumberer struct {
	mu       sync.Mutex
	prefixes []string
}

func (f *fixedNumberer) Next(_ context.Context, prefix string, at time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = append(f.prefixes, prefix)
	return fmt.Sprintf("%s-%s-%03d", prefix, at.Format("2006-01"), len(f.prefixes)), nil
}

func newTestService(t *testing.T) (*Service, *fixedNumberer) {
	t.Helper()
	var (
		mu  sync.Mutex
		seq int
	)
	nums := &fixedNumberer{}
	return &Service{
		Store:    NewMemoryStore(),
		Numberer: nums,
		Now:      func() time.Time { return time.Date(2026, time.May, 10, 9, 0, 0, 0, time.UTC) },
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	}, nums
}

func TestCreateDomesticDefaults(t *testing.T) {
	svc, nums := newTestService(t)
	doc, err := svc.CreateDomestic(context.Background(), DomesticHeader{GST: true})
	require.NoError(t, err)
	require.Equal(t, "INV-2026-05-001", doc.Number)
	require.Equal(t, DefaultDomesticTheme, doc.Theme)
	require.Equal(t, "2026-05-10", doc.Date)
	require.Empty(t, doc.Items)
	require.Equal(t, []string{"INV"}, nums.prefixes)

	kept, err := svc.CreateDomestic(context.Background(), DomesticHeader{Number: "CUSTOM-1"})
	require.NoError(t, err)
	require.Equal(t, "CUSTOM-1", kept.Number)
	require.Len(t, nums.prefixes, 1)
}

func TestCreateInternationalUsesCountryDefaults(t *testing.T) {
	svc, nums := newTestService(t)
	doc, err := svc.CreateInternational(context.Background(), InternationalHeader{Country: "gb"})
	require.NoError(t, err)
	require.Equal(t, "GB", doc.Country)
	require.Equal(t, "GBP", doc.Currency)
	require.Equal(t, "VAT", doc.TaxLabel)
	require.Equal(t, DefaultPaymentTerms, doc.PaymentTerms)
	require.Equal(t, DefaultInternationalTheme, doc.Theme)
	require.Equal(t, []string{"INV-UK"}, nums.prefixes)

	us, err := svc.CreateInternational(context.Background(), InternationalHeader{})
	require.NoError(t, err)
	require.Equal(t, "US", us.Country)
	require.Equal(t, "USD", us.Currency)
}

func TestDomesticItemLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc, err := svc.CreateDomestic(ctx, DomesticHeader{
		GST:     true,
		Company: Party{GSTIN: "27AAPFU0939F1ZV"},
		Client:  Party{GSTIN: "27BBBBB1111B1Z5"},
	})
	require.NoError(t, err)

	_, item, err := svc.AddItem(ctx, KindDomestic, doc.ID)
	require.NoError(t, err)
	require.Equal(t, 1.0, item.Quantity)
	require.Equal(t, 18.0, item.TaxRate)

	_, _, err = svc.EditItem(ctx, KindDomestic, doc.ID, item.ID, pricing.SetQuantity{Value: 2})
	require.NoError(t, err)
	_, edited, err := svc.EditItem(ctx, KindDomestic, doc.ID, item.ID, pricing.SetRate{Value: 500})
	require.NoError(t, err)
	require.Equal(t, 1000.0, edited.Amount)
	require.Equal(t, 1180.0, edited.Total)

	loaded, err := svc.GetDomestic(ctx, doc.ID)
	require.NoError(t, err)
	totals := DomesticTotals(loaded)
	require.Equal(t, pricing.DomesticTotals{Subtotal: 1000, CGST: 90, SGST: 90, Total: 1180}, totals)
	require.Equal(t, pricing.SupplyIntra, loaded.Supply())

	_, err = svc.UpdateDomesticHeader(ctx, doc.ID, DomesticHeader{
		GST:     true,
		Company: Party{GSTIN: "27AAPFU0939F1ZV"},
		Client:  Party{GSTIN: "29BBBBB1111B1Z5"},
	})
	require.NoError(t, err)
	loaded, err = svc.GetDomestic(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.Number, loaded.Number)
	require.Len(t, loaded.Items, 1)
	require.Equal(t, pricing.DomesticTotals{Subtotal: 1000, IGST: 180, Total: 1180}, loaded.Totals())

	_, err = svc.RemoveItem(ctx, KindDomestic, doc.ID, item.ID)
	require.NoError(t, err)
	loaded, err = svc.GetDomestic(ctx, doc.ID)
	require.NoError(t, err)
	require.Empty(t, loaded.Items)
	require.Equal(t, pricing.DomesticTotals{}, loaded.Totals())
}

func TestItemOperationsReportMissing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc, err := svc.CreateDomestic(ctx, DomesticHeader{})
	require.NoError(t, err)

	_, _, err = svc.EditItem(ctx, KindDomestic, doc.ID, "nope", pricing.SetRate{Value: 1})
	require.ErrorIs(t, err, ErrItemNotFound)
	_, err = svc.RemoveItem(ctx, KindDomestic, doc.ID, "nope")
	require.ErrorIs(t, err, ErrItemNotFound)
	_, _, err = svc.AddItem(ctx, KindDomestic, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, KindInternational, doc.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInternationalRejectsClassificationEdit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc, err := svc.CreateInternational(ctx, InternationalHeader{Country: "DE"})
	require.NoError(t, err)
	_, item, err := svc.AddItem(ctx, KindInternational, doc.ID)
	require.NoError(t, err)
	require.Equal(t, 0.0, item.TaxRate)

	_, _, err = svc.EditItem(ctx, KindInternational, doc.ID, item.ID, pricing.SetClassificationCode{Value: "9983"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.EditItem(ctx, KindInternational, doc.ID, item.ID, pricing.SetRate{Value: 100})
	require.NoError(t, err)
	_, _, err = svc.EditItem(ctx, KindInternational, doc.ID, item.ID, pricing.SetTaxRate{Value: 19})
	require.NoError(t, err)
	loaded, err := svc.GetInternational(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.InternationalTotals{Subtotal: 100, Tax: 19, Total: 119}, InternationalTotals(loaded))
}

func TestDeleteAndList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	first, err := svc.CreateDomestic(ctx, DomesticHeader{})
	require.NoError(t, err)
	_, err = svc.CreateDomestic(ctx, DomesticHeader{})
	require.NoError(t, err)
	_, err = svc.CreateInternational(ctx, InternationalHeader{})
	require.NoError(t, err)

	docs, total, err := svc.List(ctx, KindDomestic, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, docs, 2)

	require.ErrorIs(t, svc.Delete(ctx, KindInternational, first.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, KindDomestic, first.ID))
	_, err = svc.GetDomestic(ctx, first.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentEditsWithRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, _ := newTestService(t)
	svc.Locker = lock.Locker{R: client, RetryBackoff: time.Millisecond}
	ctx := context.Background()
	doc, err := svc.CreateDomestic(ctx, DomesticHeader{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.AddItem(ctx, KindDomestic, doc.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	loaded, err := svc.GetDomestic(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 8)
}

func TestServiceNotConfigured(t *testing.T) {
	var svc *Service
	_, err := svc.Get(context.Background(), KindDomestic, "x")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}
