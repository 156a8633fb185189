// Package mutation はDrupalの記事を作成・更新する。
//
// すべての変更系リクエストはセッションが有効な場合のみ送信し、
// 送信直前にCSRFトークンを取得し直す。
// 取得元が401を返した場合はセッションを破棄し、403の場合はセッションを維持する。
package mutation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/cmsshowcase/internal/content"
	"github.com/hitoshi/cmsshowcase/internal/metrics"
	"github.com/hitoshi/cmsshowcase/internal/model"
	"github.com/hitoshi/cmsshowcase/internal/upstream"
	"github.com/hitoshi/cmsshowcase/internal/validation"
)

// 操作名（メトリクスラベル）
const (
	OperationCreate = "create"
	OperationUpdate = "update"
)

// 結果（メトリクスラベル）
const (
	outcomeSuccess      = "success"
	outcomeValidation   = "validation_failed"
	outcomeAuthRequired = "auth_required"
	outcomeUnauthorized = "unauthorized"
	outcomeForbidden    = "forbidden"
	outcomeFailed       = "failed"
	outcomeTransport    = "transport_error"
)

// articleType はJSON:APIのリソース型。
const articleType = "node--article"

// Session は変更クライアントが必要とするセッション操作。
//
// AuthenticatedGenerationが返す世代をInvalidateに渡すことで、
// 送信中に別のログインが完了した場合に新しいセッションを破棄しないようにする。
type Session interface {
	AuthenticatedGeneration(ctx context.Context) (uint64, bool)
	FreshToken(ctx context.Context) (string, error)
	Invalidate(ctx context.Context, gen uint64, reason string) bool
	API() *upstream.Client
}

// ArticleInput は記事の作成・更新の入力。
type ArticleInput struct {
	Title string `json:"title" validate:"required,max=255"`
	Body  string `json:"body" validate:"required"`
}

// Client はDrupalの記事を作成・更新する。
type Client struct {
	session    Session
	api        *upstream.Client
	reader     *content.DrupalSource
	normalizer *content.Normalizer
	validate   *validator.Validate
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewClient はClientを生成する。取得元への通信はセッションのクライアントを共有する。
func NewClient(session Session, normalizer *content.Normalizer, m metrics.MetricsCollector, logger *slog.Logger) *Client {
	if m == nil {
		m = metrics.Nop{}
	}
	api := session.API()
	return &Client{
		session:    session,
		api:        api,
		reader:     content.NewDrupalSource(api, normalizer, logger),
		normalizer: normalizer,
		validate:   validation.New(),
		metrics:    m,
		logger:     logger,
	}
}

// Create は記事を作成する。
func (c *Client) Create(ctx context.Context, title, body string) (*model.ContentItem, error) {
	in, gen, err := c.prepare(ctx, OperationCreate, title, body)
	if err != nil {
		return nil, err
	}

	doc := newEnvelope("", in, content.DefaultBodyFormat)
	return c.send(ctx, OperationCreate, gen, http.MethodPost, content.DrupalArticlePath, doc)
}

// Update は既存の記事を更新する。既存の本文書式を読み取って維持する。
func (c *Client) Update(ctx context.Context, id, title, body string) (*model.ContentItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		c.metrics.RecordMutation(OperationUpdate, outcomeValidation)
		return nil, model.NewValidationError("記事IDは必須です")
	}
	in, gen, err := c.prepare(ctx, OperationUpdate, title, body)
	if err != nil {
		return nil, err
	}

	format := c.existingFormat(ctx, id)
	doc := newEnvelope(id, in, format)
	return c.send(ctx, OperationUpdate, gen, http.MethodPatch, content.DrupalArticlePath+"/"+url.PathEscape(id), doc)
}

// prepare は入力検証と認証確認を行い、認証を確認した時点のセッション世代を返す。
// いずれかに失敗した場合は通信しない。
// 本文は空白のみかどうかの判定にだけトリムし、送信する値は変更しない。
func (c *Client) prepare(ctx context.Context, op, title, body string) (ArticleInput, uint64, error) {
	in := ArticleInput{
		Title: strings.TrimSpace(title),
		Body:  body,
	}
	check := in
	check.Body = strings.TrimSpace(body)
	if err := c.validate.Struct(check); err != nil {
		c.metrics.RecordMutation(op, outcomeValidation)
		return in, 0, model.NewValidationError(validation.Message(err))
	}
	gen, ok := c.session.AuthenticatedGeneration(ctx)
	if !ok {
		c.metrics.RecordMutation(op, outcomeAuthRequired)
		return in, 0, model.NewAuthRequiredError()
	}
	return in, gen, nil
}

// existingFormat は既存記事の本文書式を返す。読み取れない場合はデフォルトの書式。
func (c *Client) existingFormat(ctx context.Context, id string) string {
	doc, _, err := c.reader.FetchNode(ctx, id)
	if err != nil {
		c.logger.Warn("既存記事の読み取りに失敗したためデフォルトの書式を使用します",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return content.DefaultBodyFormat
	}
	if body := doc.Data.Attributes.Body; body != nil && body.Format != "" {
		return body.Format
	}
	return content.DefaultBodyFormat
}

func (c *Client) send(ctx context.Context, op string, gen uint64, method, path string, doc envelope) (*model.ContentItem, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		c.metrics.RecordMutation(op, outcomeFailed)
		return nil, fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}

	token, err := c.session.FreshToken(ctx)
	if err != nil {
		c.metrics.RecordMutation(op, outcomeTransport)
		return nil, model.NewMutationFailedError(fmt.Sprintf("CSRFトークンを取得できませんでした: %v", err))
	}

	req, err := c.api.NewRequest(ctx, method, path, bytes.NewReader(payload))
	if err != nil {
		c.metrics.RecordMutation(op, outcomeFailed)
		return nil, err
	}
	req.Header.Set("Content-Type", content.JSONAPIMediaType)
	req.Header.Set("Accept", content.JSONAPIMediaType)
	req.Header.Set("X-CSRF-Token", token)

	resp, err := c.api.Do(req)
	if err != nil {
		c.metrics.RecordMutation(op, outcomeTransport)
		return nil, model.NewMutationFailedError(err.Error())
	}
	if !resp.OK() {
		return nil, c.classify(ctx, op, gen, resp)
	}

	c.metrics.RecordMutation(op, outcomeSuccess)
	item := c.decodeItem(resp.Body, doc)
	c.logger.Info("記事を保存しました",
		slog.String("operation", op),
		slog.String("id", item.ID),
	)
	return &item, nil
}

// classify は非2xxの応答を原因別のエラーに変換する。
// 401の場合は送信時のセッション世代に限って無効化する。
func (c *Client) classify(ctx context.Context, op string, gen uint64, resp *upstream.Response) error {
	detail := errorDetail(resp.Body, resp.StatusCode)
	c.logger.Warn("記事の保存に失敗しました",
		slog.String("operation", op),
		slog.Int("http_status", resp.StatusCode),
		slog.String("detail", detail),
	)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		c.metrics.RecordMutation(op, outcomeUnauthorized)
		c.session.Invalidate(ctx, gen, "mutation returned 401")
		return model.NewAuthenticationFailedError(detail)
	case http.StatusForbidden:
		// トークン自体は有効なのでセッションは維持する
		c.metrics.RecordMutation(op, outcomeForbidden)
		return model.NewPermissionDeniedError(detail)
	default:
		c.metrics.RecordMutation(op, outcomeFailed)
		return model.NewMutationFailedError(detail)
	}
}

// decodeItem は保存後の応答を正規化する。
// 応答を解釈できない場合は送信した内容から組み立てる。
func (c *Client) decodeItem(body []byte, sent envelope) model.ContentItem {
	var doc content.DrupalSingleDocument
	if err := json.Unmarshal(body, &doc); err == nil && doc.Data != nil {
		return c.normalizer.Drupal(*doc.Data, model.ContentKindArticle, "")
	}

	c.api.RecordFailure("parse")
	c.logger.Warn("保存後の応答を解釈できないため送信内容を使用します")
	return c.normalizer.Drupal(content.DrupalNode{
		ID:   sent.Data.ID,
		Type: articleType,
		Attributes: content.DrupalAttributes{
			Title: sent.Data.Attributes.Title,
			Body:  &sent.Data.Attributes.Body,
		},
	}, model.ContentKindArticle, "")
}

// envelope はJSON:APIの変更リクエスト本体。
type envelope struct {
	Data envelopeData `json:"data"`
}

type envelopeData struct {
	Type       string             `json:"type"`
	ID         string             `json:"id,omitempty"`
	Attributes envelopeAttributes `json:"attributes"`
}

type envelopeAttributes struct {
	Title string             `json:"title"`
	Body  content.DrupalBody `json:"body"`
}

func newEnvelope(id string, in ArticleInput, format string) envelope {
	return envelope{Data: envelopeData{
		Type: articleType,
		ID:   id,
		Attributes: envelopeAttributes{
			Title: in.Title,
			Body: content.DrupalBody{
				Value:  in.Body,
				Format: format,
			},
		},
	}}
}

// errorDetail はJSON:APIのエラー応答から表示用の理由を取り出す。
// 解釈できない場合はステータスコードを含む汎用の文言を返す。
func errorDetail(body []byte, status int) string {
	var doc struct {
		Errors []content.DrupalErrorEntry `json:"errors"`
	}
	if err := json.Unmarshal(body, &doc); err == nil {
		var parts []string
		for _, e := range doc.Errors {
			switch {
			case e.Detail != "":
				parts = append(parts, e.Detail)
			case e.Title != "":
				parts = append(parts, e.Title)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	return fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
}
