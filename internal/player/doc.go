// Package player owns the queue, transport state and audio engines of one view.
//
// A [Controller] holds the ordered queue and the authoritative [Status]: active song,
// stopped/playing/paused, elapsed time and volume. A [Driver] subscribes to the
// controller and realizes that state on an [Engine], chosen per song by [SelectEngine]:
//
//   - [PremiumEngine] streams full tracks on a Spotify Connect device
//   - [PreviewEngine] plays preview clips through a local [MediaElement]
//
// Engine failures degrade from premium to preview to unavailable and never stop the view.
// Engine-side events (natural end of track, external pause, position) flow back into
// the controller so a single state stays authoritative.
package player
