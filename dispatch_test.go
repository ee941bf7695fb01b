package ferry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replyTo(parent *Message) *Message {
	return &Message{ID: 100, ChatID: 5, Text: "/upload", ReplyTo: parent}
}

func TestJobFromReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		attachment *Attachment
		wantItem   SourceItem
		wantErr    error
	}{
		{
			name:       "document keeps its filename",
			attachment: &Attachment{Kind: KindDocument, Ref: "doc", Size: 10, FileName: "report.pdf", MimeType: "application/pdf"},
			wantItem:   SourceItem{Ref: "doc", Size: 10, Name: "report.pdf", MimeType: "application/pdf"},
		},
		{
			name:       "photo gets a generated name and jpeg type",
			attachment: &Attachment{Kind: KindPhoto, Ref: "p", Size: 99},
			wantItem:   SourceItem{Ref: "p", Size: 99, Name: "photo_7.jpg", MimeType: "image/jpeg"},
		},
		{
			name:       "unnamed voice falls back to kind and id",
			attachment: &Attachment{Kind: KindVoice, Ref: "v", Size: 3},
			wantItem:   SourceItem{Ref: "v", Size: 3, Name: "voice_7"},
		},
		{
			name:       "video note",
			attachment: &Attachment{Kind: KindVideoNote, Ref: "vn", Size: 3},
			wantItem:   SourceItem{Ref: "vn", Size: 3, Name: "video_note_7"},
		},
		{
			name:       "sticker is accepted for single uploads",
			attachment: &Attachment{Kind: KindSticker, Ref: "s", Size: 1, FileName: "sticker.webp"},
			wantItem:   SourceItem{Ref: "s", Size: 1, Name: "sticker.webp"},
		},
		{
			name:       "missing size becomes unknown",
			attachment: &Attachment{Kind: KindAudio, Ref: "a", FileName: "song.mp3"},
			wantItem:   SourceItem{Ref: "a", Size: SizeUnknown, Name: "song.mp3"},
		},
		{
			name:       "unsupported kind",
			attachment: &Attachment{Kind: "poll", Ref: "x"},
			wantErr:    ErrNoSourceFound,
		},
		{
			name:    "no attachment",
			wantErr: ErrNoSourceFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := replyTo(&Message{ID: 7, ChatID: 5, Attachment: tt.attachment})
			job, err := JobFromReply(cmd)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ModeSingle, job.Mode)
			assert.Equal(t, ChatRef{ChatID: 5, ReplyTo: 100}, job.Chat)
			assert.Equal(t, []SourceItem{tt.wantItem}, job.Items)
			assert.Empty(t, job.Name)
		})
	}
}

func TestJobFromReply_NotAReply(t *testing.T) {
	t.Parallel()

	_, err := JobFromReply(&Message{ID: 1})
	assert.ErrorIs(t, err, ErrNoSourceFound)
	assert.Equal(t, MsgNoReply, Describe(err))
}

func TestJobFromReplyNamed(t *testing.T) {
	t.Parallel()

	cmd := replyTo(&Message{ID: 7, Attachment: &Attachment{Kind: KindDocument, Ref: "d", Size: 1, FileName: "a.txt"}})

	job, err := JobFromReplyNamed(cmd, "  final.txt ")
	require.NoError(t, err)
	assert.Equal(t, "final.txt", job.Name)

	_, err = JobFromReplyNamed(cmd, "   ")
	assert.ErrorIs(t, err, ErrMissingName)
	assert.Equal(t, MsgMissingName, Describe(err))
}

func TestJobFromAttachment(t *testing.T) {
	t.Parallel()

	msg := &Message{ID: 3, ChatID: 8, Attachment: &Attachment{Kind: KindVideo, Ref: "v", Size: 5, FileName: "clip.mp4"}}
	job, err := JobFromAttachment(msg)
	require.NoError(t, err)
	assert.Equal(t, ChatRef{ChatID: 8, ReplyTo: 3}, job.Chat)
	assert.Equal(t, "clip.mp4", job.Items[0].Name)

	// Voice notes are only uploaded on request.
	_, err = JobFromAttachment(&Message{ID: 4, Attachment: &Attachment{Kind: KindVoice, Ref: "x"}})
	assert.ErrorIs(t, err, ErrNoSourceFound)

	_, err = JobFromAttachment(&Message{ID: 5, Text: "hi"})
	assert.ErrorIs(t, err, ErrNoSourceFound)
}

func TestJobFromChain(t *testing.T) {
	t.Parallel()

	first := &Message{ID: 1, Attachment: &Attachment{Kind: KindPhoto, Ref: "p", Size: 5}}
	text := &Message{ID: 2, ReplyTo: first, Text: "look at this"}
	sticker := &Message{ID: 3, ReplyTo: text, Attachment: &Attachment{Kind: KindSticker, Ref: "s", Size: 1}}
	doc := &Message{ID: 4, ReplyTo: sticker, Attachment: &Attachment{Kind: KindDocument, Ref: "d", Size: 9, FileName: "a.pdf"}}
	cmd := &Message{ID: 5, ChatID: 11, Text: "/zip", ReplyTo: doc}

	job, err := JobFromChain(cmd, "")
	require.NoError(t, err)

	assert.Equal(t, ModeArchive, job.Mode)
	assert.Equal(t, "archive_5.zip", job.Name)
	assert.Equal(t, ChatRef{ChatID: 11, ReplyTo: 5}, job.Chat)
	require.Len(t, job.Items, 2)
	assert.Equal(t, "a.pdf", job.Items[0].Name)
	assert.Equal(t, "photo_1.jpg", job.Items[1].Name)
	assert.NoError(t, job.Validate())
}

func TestJobFromChain_CustomName(t *testing.T) {
	t.Parallel()

	cmd := &Message{ID: 5, ReplyTo: &Message{ID: 1, Attachment: &Attachment{Kind: KindAudio, Ref: "a", Size: 1}}}
	job, err := JobFromChain(cmd, "holiday")
	require.NoError(t, err)
	assert.Equal(t, "holiday", job.Name)
	assert.Equal(t, "holiday.zip", archiveName(job))

	job.Name = "trip.ZIP"
	assert.Equal(t, "trip.ZIP", archiveName(job))

	job.Name = ""
	job.ID = "0123456789abcdef"
	assert.Equal(t, "archive_01234567.zip", archiveName(job))
}

func TestJobFromChain_NoFiles(t *testing.T) {
	t.Parallel()

	cmd := &Message{ID: 5, ReplyTo: &Message{ID: 1, Text: "just text"}}
	_, err := JobFromChain(cmd, "")
	assert.ErrorIs(t, err, ErrNoSourceFound)
	assert.Equal(t, MsgNoFiles, DescribeMode(ModeArchive, err))

	_, err = JobFromChain(&Message{ID: 6}, "")
	assert.Equal(t, MsgNoReply, DescribeMode(ModeArchive, err))
}

func TestJobFromChain_DepthBounded(t *testing.T) {
	t.Parallel()

	var msg *Message
	for i := range MaxChainDepth + 20 {
		msg = &Message{
			ID:         int64(i + 1),
			ReplyTo:    msg,
			Attachment: &Attachment{Kind: KindDocument, Ref: "r", Size: 1},
		}
	}
	job, err := JobFromChain(&Message{ID: 9999, ReplyTo: msg}, "")
	require.NoError(t, err)
	assert.Len(t, job.Items, MaxChainDepth)
}
