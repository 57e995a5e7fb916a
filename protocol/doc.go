// Package protocol maps the QL label printer command set to bytes.
//
// Commands are plain values. Serialize returns the exact bytes for one
// device write; commands with a reply also decode the reply frame:
//
//	link.Send(protocol.Initialize{})
//	link.Send(protocol.NewSetCommandMode(protocol.ModeRaster))
//	status, err := driver.Query[protocol.PrinterStatus](link, protocol.StatusInfoRequest{})
//
// Parameterized commands are assembled from Encoder segments into a bounded
// scratch buffer. Integers are little-endian at their natural width and
// mode flags are packed into a single byte.
//
// # Status frames
//
// The printer answers a status request with a 32 byte frame:
//
//	offset  0-1  magic 0x80 0x20
//	offset  8    error information 1
//	offset  9    error information 2
//	offset 10    media width (mm)
//	offset 11    media type
//	offset 17    media length (mm)
//	offset 18    status type
//	offset 19    phase state
//
// # Raster frames
//
// Each scanline is sent as {'g', 0x00, n} followed by n data bytes, most
// significant bit first, one frame per write.
package protocol
