// Package space is the device model of DevSpace Core.
//
// A Manager owns an ordered collection of Devices. Each device carries a
// Kind that selects its display name, allowed statuses and footprint from a
// fixed table. Hub devices (Raspberry Pi) also carry a pin registry of the
// peripherals wired to them; peripherals point back at their hub by id.
//
// # Invariants
//
//   - Device ids are "<KIND><ordinal>" and ordinals are never reused.
//   - A peripheral is connected iff its hub holds exactly one pin entry for it.
//   - Pins are unique within a hub; automatic assignment takes the lowest free pin.
//
// # Concurrency
//
// Nothing in this package locks. Every Manager call must run on the Loop
// goroutine:
//
//	loop := space.NewLoop(64)
//	go loop.Run(ctx)
//
//	err := loop.Do(ctx, func() error {
//	    _, err := mgr.AddDevice(space.KindLED)
//	    return err
//	})
//
// Rendering and layout are collaborators supplied through SetRenderer and
// SetLayout; the Manager calls them after every change but never inspects
// what they draw.
package space
