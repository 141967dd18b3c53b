package exchange

import "encoding/binary"

// encodeIDs/decodeIDs and encodeAck/decodeAck are the wire format of the
// loopback group's mailboxes during plan construction: a length-prefixed
// run of little-endian int64s. The engine never needs anything richer —
// element IDs and the handful of ack fields are all int64.

func encodeIDs(ids []int64) []byte {
	buf := make([]byte, 8+8*len(ids))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(len(ids)))
	for i, id := range ids {
		binary.LittleEndian.PutUint64(buf[8+8*i:16+8*i], uint64(id))
	}
	return buf
}

func decodeIDs(buf []byte) []int64 {
	if len(buf) < 8 {
		return nil
	}
	n := binary.LittleEndian.Uint64(buf[0:8])
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(binary.LittleEndian.Uint64(buf[8+8*i : 16+8*i]))
	}
	return ids
}

func encodeAck(entries []ackEntry) []byte {
	buf := make([]byte, 8+16*len(entries))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(len(entries)))
	off := 8
	for _, e := range entries {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(e.index))
		binary.LittleEndian.PutUint64(buf[off+8:off+16], uint64(e.elementID))
		off += 16
	}
	return buf
}

func decodeAck(buf []byte) []ackEntry {
	if len(buf) < 8 {
		return nil
	}
	n := binary.LittleEndian.Uint64(buf[0:8])
	entries := make([]ackEntry, n)
	off := 8
	for i := range entries {
		entries[i] = ackEntry{
			index:     int64(binary.LittleEndian.Uint64(buf[off : off+8])),
			elementID: int64(binary.LittleEndian.Uint64(buf[off+8 : off+16])),
		}
		off += 16
	}
	return entries
}
