// Package media は外部URLからのレシピ画像取り込みを提供する。
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/recipebook/internal/model"
)

// imagesSubdir は静的ファイルディレクトリ配下の画像保存先。
const imagesSubdir = "images"

// allowedImageTypes は取り込みを許可するMIMEタイプと保存時の拡張子。
// SVGはスクリプトを含み得るため許可しない。
var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// URLValidator はSSRF検証のインターフェース。
// security.URLGuardを抽象化してテスタビリティを向上させる。
type URLValidator interface {
	Validate(rawURL string) error
	Client() *http.Client
}

// Importer は画像をダウンロードして静的ファイルディレクトリに保存する。
type Importer struct {
	guard       URLValidator
	staticDir   string
	maxSize     int64
	maxAttempts int
	retryDelay  time.Duration
}

// NewImporter はImporterを生成する。
// staticDirは/static/で配信されるディレクトリ、maxSizeは画像の最大バイト数。
func NewImporter(guard URLValidator, staticDir string, maxSize int64) *Importer {
	return &Importer{
		guard:       guard,
		staticDir:   staticDir,
		maxSize:     maxSize,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// Import はrawURLの画像を取り込み、静的ファイルディレクトリからの相対パス
// （例: "images/<uuid>.png"）を返す。
func (im *Importer) Import(ctx context.Context, rawURL string) (string, error) {
	if err := im.guard.Validate(rawURL); err != nil {
		slog.Warn("画像取り込み: SSRFブロック", "url", rawURL, "error", err)
		return "", model.NewImageURLBlockedError()
	}

	body, mimeType, err := im.fetchWithRetry(ctx, rawURL)
	if err != nil {
		return "", err
	}
	ext := allowedImageTypes[mimeType]

	// Content-Typeの詐称を防ぐため内容からも判定する
	if sniffed := extractMimeType(http.DetectContentType(body)); sniffed != mimeType {
		slog.Warn("画像取り込み: 内容とContent-Typeが不一致", "url", rawURL, "contentType", mimeType, "sniffed", sniffed)
		return "", model.NewImageImportFailedError("画像の内容が不正です")
	}

	name := uuid.NewString() + ext
	dir := filepath.Join(im.staticDir, imagesSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), body, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	publicPath := path.Join(imagesSubdir, name)
	slog.Info("画像を取り込みました", "url", rawURL, "path", publicPath, "size", len(body))
	return publicPath, nil
}

// Remove はImportが保存した画像を削除する。
// images/配下の相対パス以外は拒否し、既に存在しない場合はエラーにしない。
func (im *Importer) Remove(publicPath string) error {
	clean := path.Clean(publicPath)
	if path.Dir(clean) != imagesSubdir || strings.HasPrefix(clean, "/") {
		return fmt.Errorf("refusing to remove %q: not an imported image", publicPath)
	}
	err := os.Remove(filepath.Join(im.staticDir, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove image %s: %w", publicPath, err)
	}
	return nil
}

// fetchWithRetry は429/5xx応答に限り指数バックオフで再試行しながら画像を取得する。
func (im *Importer) fetchWithRetry(ctx context.Context, rawURL string) ([]byte, string, error) {
	for attempt := 0; ; attempt++ {
		body, mimeType, outcome, err := im.fetch(ctx, rawURL)
		if outcome != outcomeRetry || attempt+1 >= im.maxAttempts {
			return body, mimeType, err
		}

		delay := backoffDelay(im.retryDelay, attempt)
		slog.Info("画像取り込み: 再試行します", "url", rawURL, "attempt", attempt+1, "delay", delay)
		select {
		case <-ctx.Done():
			return nil, "", model.NewImageImportFailedError("画像の取得が中断されました")
		case <-time.After(delay):
		}
	}
}

// fetch は画像を1回取得し、メディアタイプと取得結果の分類を返す。
func (im *Importer) fetch(ctx context.Context, rawURL string) ([]byte, string, fetchOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", outcomeStop, model.NewImageImportFailedError("URLの形式が不正です")
	}
	req.Header.Set("User-Agent", "Recipebook/1.0 Image Importer")
	req.Header.Set("Accept", "image/*")

	resp, err := im.guard.Client().Do(req)
	if err != nil {
		slog.Warn("画像取り込み: HTTPリクエスト失敗", "url", rawURL, "error", err)
		return nil, "", outcomeStop, model.NewImageImportFailedError("画像を取得できませんでした")
	}
	defer resp.Body.Close()

	if outcome := classifyStatus(resp.StatusCode); outcome != outcomeOK {
		slog.Warn("画像取り込み: HTTPステータス異常", "url", rawURL, "status", resp.StatusCode)
		return nil, "", outcome, model.NewImageImportFailedError(fmt.Sprintf("HTTPステータス %d", resp.StatusCode))
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	if _, ok := allowedImageTypes[mimeType]; !ok {
		slog.Warn("画像取り込み: 非対応のContent-Type", "url", rawURL, "contentType", mimeType)
		return nil, "", outcomeStop, model.NewImageImportFailedError("対応していない画像形式です")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, im.maxSize+1))
	if err != nil {
		slog.Warn("画像取り込み: レスポンス読み取り失敗", "url", rawURL, "error", err)
		return nil, "", outcomeStop, model.NewImageImportFailedError("画像を取得できませんでした")
	}
	if int64(len(body)) > im.maxSize {
		slog.Warn("画像取り込み: サイズ超過", "url", rawURL, "limit", im.maxSize)
		return nil, "", outcomeStop, model.NewImageImportFailedError(fmt.Sprintf("画像サイズが上限（%dバイト）を超えています", im.maxSize))
	}
	return body, mimeType, outcomeOK, nil
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(strings.ToLower(mediaType))
}
