package ferry

import (
	"fmt"
	"strings"
)

// MaxChainDepth bounds how many messages JobFromChain walks.
const MaxChainDepth = 100

// singleKinds are the attachment kinds accepted by the upload commands.
var singleKinds = map[AttachmentKind]bool{
	KindDocument:  true,
	KindVideo:     true,
	KindAudio:     true,
	KindPhoto:     true,
	KindVoice:     true,
	KindVideoNote: true,
	KindSticker:   true,
}

// autoKinds are uploaded without a command as soon as they arrive.
var autoKinds = map[AttachmentKind]bool{
	KindDocument: true,
	KindVideo:    true,
	KindAudio:    true,
	KindPhoto:    true,
}

// JobFromReply builds a single-file job for an upload command sent as a
// reply to a message with an attachment.
func JobFromReply(cmd *Message) (Job, error) {
	return jobFromReply(cmd, "")
}

// JobFromReplyNamed is JobFromReply with a custom upload filename.
// An empty or blank name fails with ErrMissingName.
func JobFromReplyNamed(cmd *Message, name string) (Job, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Job{}, ErrMissingName
	}
	return jobFromReply(cmd, name)
}

func jobFromReply(cmd *Message, name string) (Job, error) {
	if cmd == nil || cmd.ReplyTo == nil {
		return Job{}, errNoReply
	}
	item, ok := sourceItem(cmd.ReplyTo, singleKinds)
	if !ok {
		return Job{}, fmt.Errorf("%w: message %d has no supported attachment", ErrNoSourceFound, cmd.ReplyTo.ID)
	}
	return Job{
		Chat:  replyChat(cmd),
		Items: []SourceItem{item},
		Name:  name,
		Mode:  ModeSingle,
	}, nil
}

// JobFromAttachment builds a single-file job for a message that carries a
// document, video, audio or photo itself.
func JobFromAttachment(msg *Message) (Job, error) {
	if msg == nil {
		return Job{}, fmt.Errorf("%w: no message", ErrNoSourceFound)
	}
	item, ok := sourceItem(msg, autoKinds)
	if !ok {
		return Job{}, fmt.Errorf("%w: message %d has no auto-upload attachment", ErrNoSourceFound, msg.ID)
	}
	return Job{
		Chat:  replyChat(msg),
		Items: []SourceItem{item},
		Mode:  ModeSingle,
	}, nil
}

// JobFromChain builds an archive job from every attachment reachable by
// following replies from the message cmd replies to. Stickers are skipped.
// The archive is named archive_<cmd.ID>.zip unless name is given; a name
// without a .zip extension gets one.
func JobFromChain(cmd *Message, name string) (Job, error) {
	if cmd == nil || cmd.ReplyTo == nil {
		return Job{}, errNoReply
	}

	var items []SourceItem
	msg := cmd.ReplyTo
	for depth := 0; msg != nil && depth < MaxChainDepth; depth++ {
		if item, ok := sourceItem(msg, archiveKinds); ok {
			items = append(items, item)
		}
		msg = msg.ReplyTo
	}
	if len(items) == 0 {
		return Job{}, fmt.Errorf("%w: no attachments in reply chain", ErrNoSourceFound)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("archive_%d.zip", cmd.ID)
	}
	return Job{
		Chat:  replyChat(cmd),
		Items: items,
		Name:  name,
		Mode:  ModeArchive,
	}, nil
}

// archiveKinds are the attachment kinds collected into archives.
var archiveKinds = map[AttachmentKind]bool{
	KindDocument:  true,
	KindVideo:     true,
	KindAudio:     true,
	KindPhoto:     true,
	KindVoice:     true,
	KindVideoNote: true,
}

// sourceItem turns msg's attachment into a SourceItem when its kind is allowed.
func sourceItem(msg *Message, allowed map[AttachmentKind]bool) (SourceItem, bool) {
	a := msg.Attachment
	if a == nil || !allowed[a.Kind] {
		return SourceItem{}, false
	}

	item := SourceItem{
		Ref:      a.Ref,
		Size:     a.Size,
		Name:     a.FileName,
		MimeType: a.MimeType,
	}
	if a.Kind == KindPhoto {
		item.Name = fmt.Sprintf("photo_%d.jpg", msg.ID)
		item.MimeType = "image/jpeg"
	}
	if item.Name == "" {
		item.Name = fmt.Sprintf("%s_%d", a.Kind, msg.ID)
	}
	// Platforms report 0 when they do not know the size.
	if item.Size == 0 {
		item.Size = SizeUnknown
	}
	return item, true
}

func replyChat(msg *Message) ChatRef {
	return ChatRef{ChatID: msg.ChatID, ReplyTo: msg.ID}
}
