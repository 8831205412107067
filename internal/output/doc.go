// Package output turns the console output of a program running on the
// remote board into device status changes.
//
// The Interpreter reads complete lines from each chunk. Lines containing
// HIGH or LOW name a board pin, which the AccessoryTable maps to a device
// index; bare numbers are sensor readings for the device at ReadingSlot.
// Malformed or unmapped lines are logged and skipped without stopping the
// rest of the chunk.
//
// The Provisioner creates the devices that mirror board accessories, wires
// them to the first hub at their pin and keeps the table in step. The
// table can be persisted with SQLiteAccessoryRepository and replayed at
// startup with Restore.
package output
