package ferry

import "fmt"

// HelpText is the reply to /start and /help.
const HelpText = "📤 GoFile Uploader Bot\n\n" +
	"Commands:\n" +
	"/upload - Upload a replied file\n" +
	"/upload_custom <filename> - Upload with custom filename\n" +
	"/zip - Compress multiple files (reply to them)\n\n" +
	"The bot automatically handles:\n" +
	"- Large files (streamed uploads)\n" +
	"- Progress tracking\n" +
	"- Temporary file cleanup"

// User-facing failure messages.
const (
	MsgMissingName     = "Please provide a custom filename after the command."
	MsgUnsupportedFile = "❌ Unsupported file type"
	MsgNoReply         = "Please reply to messages containing files"
	MsgNoFiles         = "No supported files found in the replied messages"
	MsgSizeLimit       = "❌ File size exceeds 20GB limit"
	MsgServerFailed    = "❌ Failed to get GoFile server"
	MsgUploadFailed    = "❌ Upload failed"
	MsgArchiveFailed   = "❌ ZIP upload failed"
	MsgTimeout         = "⌛ Operation timed out. Please try again."
	MsgConnection      = "🔌 Connection error. Please check your internet connection."
)

// Phase labels shown above the progress line.
const (
	archiveLabel       = "🗜 Creating ZIP archive"
	archiveUploadLabel = "⬆️ Uploading ZIP archive to GoFile"
)

func downloadLabel(name string) string {
	return "⬇️ Downloading " + name
}

func uploadLabel(name string) string {
	return "⬆️ Uploading to GoFile: " + name
}

// successMessage renders the final report for a finished upload.
func successMessage(mode Mode, r *UploadResult) string {
	if mode == ModeArchive {
		return fmt.Sprintf("✅ ZIP upload complete!\n"+
			"📦 Filename: %s\n"+
			"🔗 Download URL: %s\n"+
			"📦 Direct Link: %s\n"+
			"📝 Contains %d files",
			r.FileName, r.DownloadPage, r.DirectLink, r.Files)
	}
	return fmt.Sprintf("✅ Upload complete!\n"+
		"📁 Filename: %s\n"+
		"🔗 Download URL: %s\n"+
		"📦 Direct Link: %s",
		r.FileName, r.DownloadPage, r.DirectLink)
}
