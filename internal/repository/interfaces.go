// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
)

// KeyValueStore は文字列キーと文字列値の永続化インターフェース。
// CMSセッションレコードの保存先として使用される。
type KeyValueStore interface {
	// Get は指定キーの値を取得する。キーが存在しない場合は("", false, nil)を返す。
	Get(ctx context.Context, key string) (string, bool, error)
	// Set は指定キーに値を保存する。既存の値は上書きされる。
	Set(ctx context.Context, key, value string) error
	// Delete は指定キーを削除する。存在しないキーの削除はエラーにならない。
	Delete(ctx context.Context, key string) error
}
