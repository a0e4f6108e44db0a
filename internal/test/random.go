package test

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/growthmart/internal/domain/model"
)

const asciiLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandomASCIIString returns a pseudo-random ASCII string within the provided bounds.
// When maxLen equals minLen the resulting string always has that exact length.
func RandomASCIIString(minLen, maxLen int) string {
	if minLen <= 0 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	length := minLen
	if maxLen > minLen {
		length += randomIntn(maxLen - minLen + 1)
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = asciiLetters[randomIntn(len(asciiLetters))]
	}
	return string(buf)
}

// RandomNewOrder builds a valid order request with random target and quantity.
func RandomNewOrder() model.NewOrder {
	quantity := 1 + randomIntn(1000)
	price := decimal.New(int64(1+randomIntn(500)), -2)
	base := price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	return model.NewOrder{
		UserID:       "user-" + RandomASCIIString(6, 6),
		ServiceID:    "svc-" + RandomASCIIString(4, 8),
		TargetURL:    "https://instagram.com/" + RandomASCIIString(5, 15),
		Quantity:     quantity,
		PricePerUnit: price,
		BaseAmount:   base,
		Charge:       base,
	}
}

func randomIntn(n int) int {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Intn(n)
}
