package splitfile

type VolumeEvent string

const (
	VolumeOpened  VolumeEvent = "opened"
	VolumeCreated VolumeEvent = "created"
	VolumeEvicted VolumeEvent = "evicted"
	VolumeDeleted VolumeEvent = "deleted"
)

// Observer is notified of stream traffic and volume lifecycle changes.
// Implementations must be cheap; they run inline with every operation.
type Observer interface {
	ObserveRead(bytes int)
	ObserveWrite(bytes int)
	ObserveVolume(event VolumeEvent, index int)
}

type nopObserver struct{}

func (nopObserver) ObserveRead(int)                {}
func (nopObserver) ObserveWrite(int)               {}
func (nopObserver) ObserveVolume(VolumeEvent, int) {}
