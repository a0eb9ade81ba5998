// Package bot drives the two-step Telegram upload flow: the admin first
// sends a link or a document, then a "Name | Category | Size" line that turns
// the pending upload into a catalog item.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/kashifkhan1020/KamiNewMods/internal/admin"
	"github.com/kashifkhan1020/KamiNewMods/internal/intake"
	"github.com/kashifkhan1020/KamiNewMods/internal/metrics"
	"github.com/kashifkhan1020/KamiNewMods/internal/model"
	"github.com/kashifkhan1020/KamiNewMods/internal/session"
	"github.com/kashifkhan1020/KamiNewMods/internal/telegram"

	"go.uber.org/zap"
)

const (
	ButtonShareLink = "📤 Share Link"
	ButtonShareFile = "📎 Share File"
)

const (
	msgUnauthorized = "❌ Unauthorized access. You are not admin."
	msgMenu         = "🤖 *Welcome to File Manager Bot!*\n\n" +
		"Choose an option:\n\n" +
		"📤 *Share Link* - Add download link\n" +
		"📎 *Share File* - Upload file directly\n\n" +
		"Your files will appear on the website automatically!"
	msgAskLink = "🔗 *Please send your download link:*\n\n" +
		"Example:\n" +
		"https://mediafire.com/file/abc123/file.apk\n" +
		"https://drive.google.com/file/xyz789\n\n" +
		"After sending link, I'll ask for file details."
	msgAskFile = "📎 *Please upload your file:*\n\n" +
		"Supported types: APK, ZIP, PDF, TXT, etc.\n\n" +
		"After uploading, I'll ask for file details."
	msgAskLinkDetails = "📝 *Now send file details in this format:*\n\n" +
		"File Name | Category | Size\n\n" +
		"Example:\n" +
		"Free Fire Mod v2.1 | Games | 85 MB\n\n" +
		"Available categories:\n" +
		"APK, ZIP, Tools, Software, Games, Documents"
	msgNoPending     = "❌ No file/link found. Please start over."
	msgInvalidFormat = "❌ Invalid format. Use: Name | Category | Size"
	msgFileInfoFail  = "❌ Failed to get file info."
	msgFileSaveFail  = "❌ Failed to save file. Please try again."
	msgAddFail       = "❌ Failed to add file. Please try again."
)

// API is the part of the Telegram client the bot talks through.
type API interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.ReplyKeyboardMarkup) error
	GetFile(ctx context.Context, fileID string) (telegram.File, error)
	Download(ctx context.Context, filePath string) (io.ReadCloser, error)
}

type Bot struct {
	api      API
	gate     *admin.Gate
	sessions session.Store
	intake   *intake.Service
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(api API, gate *admin.Gate, sessions session.Store, in *intake.Service, logger *zap.Logger, m *metrics.Metrics) *Bot {
	return &Bot{
		api:      api,
		gate:     gate,
		sessions: sessions,
		intake:   in,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

var mainMenu = &telegram.ReplyKeyboardMarkup{
	Keyboard:       [][]telegram.KeyboardButton{{{Text: ButtonShareLink}, {Text: ButtonShareFile}}},
	ResizeKeyboard: true,
}

// HandleUpdate runs one step of the flow. The returned error is only ever a
// failure to reply; flow problems are reported to the chat.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) error {
	msg := u.Message
	if msg == nil || msg.From == nil {
		return nil
	}
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if !b.gate.AuthorizeUser(msg.From.ID) {
		b.metrics.AdminDenied("bot")
		b.logger.Warn("Rejected bot sender", zap.Int64("user_id", msg.From.ID))
		return b.reply(ctx, chatID, msgUnauthorized)
	}

	switch {
	case text == "/start":
		b.metrics.BotUpdate("menu")
		return b.api.SendMessage(ctx, chatID, msgMenu, mainMenu)
	case text == ButtonShareLink:
		b.metrics.BotUpdate("ask_link")
		return b.reply(ctx, chatID, msgAskLink)
	case text == ButtonShareFile:
		b.metrics.BotUpdate("ask_file")
		return b.reply(ctx, chatID, msgAskFile)
	case strings.HasPrefix(text, "http"):
		b.metrics.BotUpdate("link")
		return b.handleLink(ctx, chatID, text)
	case msg.Document != nil:
		b.metrics.BotUpdate("document")
		return b.handleDocument(ctx, chatID, msg.Document)
	case text != "":
		b.metrics.BotUpdate("details")
		return b.handleDetails(ctx, chatID, text)
	}
	return nil
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) error {
	return b.api.SendMessage(ctx, chatID, text, nil)
}

// replacePending stores up, then drops the blob of a file it superseded.
// A failed save leaves the previous upload and its blob in place.
func (b *Bot) replacePending(ctx context.Context, chatID int64, up model.PendingUpload) error {
	prev, loadErr := b.sessions.Load(ctx, chatID)
	if err := b.sessions.Save(ctx, chatID, up); err != nil {
		return err
	}
	if loadErr == nil && prev.File != nil {
		if up.File == nil || prev.File.BlobKey != up.File.BlobKey {
			b.intake.ReleaseFile(ctx, *prev.File)
		}
	}
	return nil
}

func (b *Bot) handleLink(ctx context.Context, chatID int64, link string) error {
	err := b.replacePending(ctx, chatID, model.PendingUpload{
		Type:      model.UploadLink,
		Link:      link,
		CreatedAt: b.now().UTC(),
	})
	if err != nil {
		b.logger.Error("Failed to save pending link", zap.Int64("chat_id", chatID), zap.Error(err))
		return b.reply(ctx, chatID, msgFileSaveFail)
	}
	return b.reply(ctx, chatID, msgAskLinkDetails)
}

func (b *Bot) handleDocument(ctx context.Context, chatID int64, doc *telegram.Document) error {
	logger := b.logger.With(zap.Int64("chat_id", chatID), zap.String("file_id", doc.FileID))

	info, err := b.api.GetFile(ctx, doc.FileID)
	if err != nil || info.FilePath == "" {
		logger.Error("getFile failed", zap.Error(err))
		return b.reply(ctx, chatID, msgFileInfoFail)
	}

	body, err := b.api.Download(ctx, info.FilePath)
	if err != nil {
		logger.Error("Download failed", zap.Error(err))
		return b.reply(ctx, chatID, msgFileSaveFail)
	}
	defer body.Close()

	name := doc.FileName
	if name == "" {
		name = path.Base(info.FilePath)
	}
	file, err := b.intake.StoreUpload(ctx, intake.Upload{Filename: name, MimeType: doc.MimeType, Body: body})
	if err != nil {
		logger.Error("Failed to store document", zap.Error(err))
		return b.reply(ctx, chatID, msgFileSaveFail)
	}

	err = b.replacePending(ctx, chatID, model.PendingUpload{
		Type:      model.UploadFile,
		File:      &file,
		CreatedAt: b.now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to save pending file", zap.Error(err))
		b.intake.ReleaseFile(ctx, file)
		return b.reply(ctx, chatID, msgFileSaveFail)
	}

	return b.reply(ctx, chatID, fmt.Sprintf("✅ *File received!*\n\n"+
		"📁 Name: %s\n"+
		"💾 Size: %s\n\n"+
		"📝 *Now send file details:*\n\n"+
		"File Name | Category | Description\n\n"+
		"Example:\n"+
		"Free Fire Mod v2.1 | Games | Best mod for Free Fire",
		escapeMarkdown(file.Name), intake.FormatBytes(file.Size)))
}

func (b *Bot) handleDetails(ctx context.Context, chatID int64, line string) error {
	pending, err := b.sessions.Load(ctx, chatID)
	if errors.Is(err, session.ErrNoSession) {
		return b.reply(ctx, chatID, msgNoPending)
	}
	if err != nil {
		b.logger.Error("Failed to load pending upload", zap.Int64("chat_id", chatID), zap.Error(err))
		return b.reply(ctx, chatID, msgAddFail)
	}

	meta, err := intake.ParseMetadataLine(line)
	if err != nil {
		return b.reply(ctx, chatID, msgInvalidFormat)
	}

	var (
		item *model.Item
		size string
	)
	switch {
	case pending.Type == model.UploadFile && pending.File != nil:
		item, err = b.intake.AddStoredFile(ctx, intake.StoredFileRequest{
			Name:        meta.Name,
			Category:    meta.Category,
			Description: meta.Detail,
			File:        *pending.File,
		})
		size = intake.FormatBytes(pending.File.Size)
	default:
		item, err = b.intake.AddLink(ctx, intake.LinkRequest{
			Name:      meta.Name,
			Category:  meta.Category,
			SizeLabel: meta.Detail,
			Link:      pending.Link,
		})
		size = meta.Detail
	}
	if err != nil {
		b.logger.Error("Failed to add item from bot", zap.Int64("chat_id", chatID), zap.Error(err))
		if errors.Is(err, intake.ErrInvalidFormat) {
			return b.reply(ctx, chatID, msgInvalidFormat)
		}
		return b.reply(ctx, chatID, msgAddFail)
	}

	if err := b.sessions.Delete(ctx, chatID); err != nil {
		b.logger.Warn("Failed to clear pending upload", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.logger.Info("Item added from bot", zap.String("id", item.ID.String()), zap.Int64("chat_id", chatID))

	err = b.reply(ctx, chatID, fmt.Sprintf("🎉 *File Added Successfully!*\n\n"+
		"📁 Name: %s\n"+
		"📦 Category: %s\n"+
		"💾 Size: %s\n\n"+
		"✅ File is now live on the website!\n"+
		"Users can download it immediately.",
		escapeMarkdown(meta.Name), escapeMarkdown(meta.Category), escapeMarkdown(size)))
	if err != nil {
		return err
	}
	return b.api.SendMessage(ctx, chatID, msgMenu, mainMenu)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown keeps user text from opening entities in legacy Markdown.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
