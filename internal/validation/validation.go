// Package validation は入力検証用のvalidatorと、利用者向けエラーメッセージへの変換を提供する。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New はJSONのフィールド名でエラーを報告するvalidatorを生成する。
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Message は検証エラーを表示用の文言に変換する。複数のエラーは"; "で連結する。
// validator.ValidationErrors以外のエラーはそのままの文言を返す。
func Message(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s は必須です", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s はメールアドレスの形式で入力してください", field))
		case "len":
			messages = append(messages, fmt.Sprintf("%s は%s文字で入力してください", field, e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s は%s文字以内で入力してください", field, e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s が不正です (%s)", field, e.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}
