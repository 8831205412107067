// Package remote connects the visualiser to the program running on the
// remote board.
//
// A Runner launches the program through a configured command (typically
// an ssh or serial bridge), restarts it on failure and streams stdout
// chunks to a ChunkHandler. A Feed does the same for boards that publish
// their console over MQTT. In both cases the handler normally posts the
// chunk to the space event loop for the output interpreter.
package remote
