// Package ferry relays files from a chat conversation to GoFile and reports
// progress back to the same conversation.
//
// A Pipeline runs one Job at a time per call: it stages every source item to
// local storage, optionally folds the items into a zip archive, picks an
// upload server, streams the upload and posts a final message with the
// download links. Staged files are deleted when the job ends, whatever the
// outcome.
//
// # Basic Usage
//
//	p, err := ferry.NewPipeline(source, messenger,
//	    ferry.WithLogger(logger),
//	    ferry.WithStagingDir("/var/cache/ferry"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	job, err := ferry.JobFromReply(msg)
//	if err != nil {
//	    p.Reject(ctx, ferry.ChatRef{ChatID: msg.ChatID, ReplyTo: msg.ID}, ferry.ModeSingle, err)
//	    return
//	}
//	result, err := p.Run(ctx, job)
//
// # Archives
//
// Jobs built with JobFromChain collect every attachment along a reply chain
// and upload them as one zip archive:
//
//	job, err := ferry.JobFromChain(msg, "holiday")
//
// # Errors
//
// Run returns errors wrapping one of the sentinel errors in this package.
// Describe turns any of them into the text posted to the user.
package ferry
