package gpuparallel

// WorkerIdentity is the immutable execution context bound to one worker for
// that worker's entire lifetime. SlotID is globally unique across all
// devices; DeviceID groups slots by logical device. The library never
// inspects or reserves real hardware — identities are consistent labels,
// nothing more.
type WorkerIdentity struct {
	SlotID   int
	DeviceID int
}

// buildIdentities enumerates the full identity set in deterministic
// device-major order: SlotID = DeviceID*slotsPerDevice + localIndex.
func buildIdentities(devices, slotsPerDevice int) []WorkerIdentity {
	ids := make([]WorkerIdentity, 0, devices*slotsPerDevice)
	for device := range devices {
		for local := range slotsPerDevice {
			ids = append(ids, WorkerIdentity{
				SlotID:   device*slotsPerDevice + local,
				DeviceID: device,
			})
		}
	}
	return ids
}

// newIdentityChannel pre-fills a buffered channel with every identity.
// Each worker performs exactly one receive during its startup; once all
// identities are claimed the channel stays empty and is never read again.
func newIdentityChannel(devices, slotsPerDevice int) chan WorkerIdentity {
	ids := buildIdentities(devices, slotsPerDevice)
	ch := make(chan WorkerIdentity, len(ids))
	for _, id := range ids {
		ch <- id
	}
	return ch
}
