// Package session binds the decoder, the interpreted archive, and the
// command-line options together into one value, instead of the scattered
// process globals (gInFilePath, gFollowRefs, gUseRealNames, ...) the
// original program kept. One Binding is constructed in main and passed by
// pointer to whichever mode handles the request.
package session

import (
	"github.com/amethystsoftware/ichatconv/internal/bplist"
	"github.com/amethystsoftware/ichatconv/internal/ichat"
)

// Binding is the single mutable-state container for one invocation.
type Binding struct {
	Decoder *bplist.Decoder
	Archive *ichat.Session // nil when the input is not an iChat archive

	FollowLinks  bool
	Overwrite    bool
	RealNames    bool
	TrimEmailIDs bool
}
