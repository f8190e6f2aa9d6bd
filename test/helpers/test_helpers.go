package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kassaflow/ledger/internal/repository"
	"github.com/kassaflow/ledger/pkg/pg"
	"github.com/kassaflow/ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.CashDeskEntity{},
		&repository.ClientEntity{},
		&repository.WorkerEntity{},
		&repository.OperationEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestCashDesk(t *testing.T, db *pg.DB, name string, baseline decimal.Decimal) *repository.CashDeskEntity {
	ctx := context.Background()
	desk := &repository.CashDeskEntity{
		Name:            name,
		BaselineBalance: baseline,
		IsActive:        true,
	}
	err := db.Write(ctx).Create(desk).Error
	require.NoError(t, err)
	return desk
}

func CreateTestClient(t *testing.T, db *pg.DB, name, email string) *repository.ClientEntity {
	ctx := context.Background()
	client := &repository.ClientEntity{
		Name:  name,
		Email: email,
	}
	err := db.Write(ctx).Create(client).Error
	require.NoError(t, err)
	return client
}

func CreateTestWorker(t *testing.T, db *pg.DB, fullName, telegram string) *repository.WorkerEntity {
	ctx := context.Background()
	worker := &repository.WorkerEntity{
		FullName:         fullName,
		TelegramUsername: telegram,
	}
	err := db.Write(ctx).Create(worker).Error
	require.NoError(t, err)
	return worker
}

func CreateTestOperation(t *testing.T, db *pg.DB, deskID int64, date time.Time, amount decimal.Decimal, opType, status string) *repository.OperationEntity {
	ctx := context.Background()
	op := &repository.OperationEntity{
		Date:       date,
		Amount:     amount,
		Type:       opType,
		Status:     status,
		CashDeskID: deskID,
	}
	err := db.Write(ctx).Create(op).Error
	require.NoError(t, err)
	return op
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
