package utils

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// ErrTimeout はバッチ処理がタイムアウトしたことを表します
var ErrTimeout = errors.New("batch process timed out")

// 指定されたタイムアウト時間内でバッチ処理を実行する
// タイムアウトを超えた場合は、コンテキストをキャンセルしてエラーを返す
// 親のコンテキストがキャンセルされた場合はその理由を返す
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- fn(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %v", ErrTimeout, timeout)
		}
		return ctx.Err()
	}
}

// GetStackWithError は、エラーとスタックトレースを組み合わせて返します
func GetStackWithError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w\nStack trace:\n%s", err, debug.Stack())
}
