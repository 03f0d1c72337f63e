package cryptoutil

// This file implements the Argon2d variant of RFC 9106, the one
// variant golang.org/x/crypto/argon2 does not expose publicly (it only
// exports Argon2i's Key and Argon2id's IDKey). Argon2d differs from
// Argon2i/Argon2id only in its block-indexing function (always
// data-dependent, never data-independent), so the initial-hash and H'
// helpers below are shared in spirit with x/crypto/argon2's internals,
// built on the same golang.org/x/crypto/blake2b primitive that package
// already depends on transitively. The compression function G and the
// reference-index algorithm follow RFC 9106 §3.4/§3.5 directly.

import (
	"context"
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

const (
	argon2BlockSize  = 1024 // bytes per 128-word block
	argon2SyncPoints = 4    // slices per pass, per RFC 9106 §3.2
)

type block [128]uint64 // 1024 bytes as 128 uint64 words

func argon2d(ctx context.Context, password []byte, p Argon2Params) ([]byte, error) {
	parallelism := uint32(p.Parallelism)
	memBlocks := p.Memory
	if memBlocks < 2*argon2SyncPoints*parallelism {
		memBlocks = 2 * argon2SyncPoints * parallelism
	}
	memBlocks -= memBlocks % (argon2SyncPoints * parallelism)
	laneLen := memBlocks / parallelism
	segmentLength := laneLen / argon2SyncPoints

	h0 := argon2InitialHash(password, p, 0) // mode 0 = Argon2d

	B := make([]block, memBlocks)
	for lane := uint32(0); lane < parallelism; lane++ {
		argon2FillFirstBlocks(B, h0, lane, laneLen)
	}

	for pass := uint32(0); pass < p.Iterations; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for slice := uint32(0); slice < argon2SyncPoints; slice++ {
			for lane := uint32(0); lane < parallelism; lane++ {
				argon2FillSegment(B, pass, lane, slice, laneLen, segmentLength, parallelism)
			}
		}
	}

	var xored block
	for lane := uint32(0); lane < parallelism; lane++ {
		last := B[lane*laneLen+laneLen-1]
		for i := range xored {
			xored[i] ^= last[i]
		}
	}
	return argon2H(blockToBytes(xored), 32), nil
}

func argon2InitialHash(password []byte, p Argon2Params, mode uint32) []byte {
	h, _ := blake2b.New512(nil)
	write32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		h.Write(b[:])
	}
	writeBytes := func(b []byte) {
		write32(uint32(len(b)))
		h.Write(b)
	}
	write32(uint32(p.Parallelism))
	write32(32) // tag length
	write32(p.Memory)
	write32(p.Iterations)
	write32(uint32(p.Version))
	write32(mode)
	writeBytes(password)
	writeBytes(p.Salt)
	writeBytes(p.Secret)
	writeBytes(p.AssocData)
	return h.Sum(nil)
}

// argon2H implements the fixed (<=64 bytes) and variable-length H'
// hash of RFC 9106 §3.3, used both for the first two blocks of every
// lane and for the final tag extraction.
func argon2H(in []byte, outLen int) []byte {
	if outLen <= 64 {
		h, _ := blake2b.New(outLen, nil)
		var lenB [4]byte
		binary.LittleEndian.PutUint32(lenB[:], uint32(outLen))
		h.Write(lenB[:])
		h.Write(in)
		return h.Sum(nil)
	}
	out := make([]byte, 0, outLen)
	h, _ := blake2b.New512(nil)
	var lenB [4]byte
	binary.LittleEndian.PutUint32(lenB[:], uint32(outLen))
	h.Write(lenB[:])
	h.Write(in)
	v := h.Sum(nil)
	out = append(out, v[:32]...)
	for len(out) < outLen-64 {
		h2, _ := blake2b.New512(nil)
		h2.Write(v)
		v = h2.Sum(nil)
		out = append(out, v[:32]...)
	}
	remain := outLen - len(out)
	h3, _ := blake2b.New(remain, nil)
	h3.Write(v)
	out = append(out, h3.Sum(nil)...)
	return out[:outLen]
}

func argon2FillFirstBlocks(B []block, h0 []byte, lane, laneLen uint32) {
	buf := make([]byte, 72)
	copy(buf, h0)
	binary.LittleEndian.PutUint32(buf[64:], 0)
	binary.LittleEndian.PutUint32(buf[68:], lane)
	B[lane*laneLen+0] = bytesToBlock(argon2H(buf, argon2BlockSize))
	binary.LittleEndian.PutUint32(buf[64:], 1)
	B[lane*laneLen+1] = bytesToBlock(argon2H(buf, argon2BlockSize))
}

// argon2FillSegment fills one (lane, slice) segment of one pass,
// computing the data-dependent reference index for every block per
// RFC 9106 §3.4's index_alpha algorithm.
func argon2FillSegment(B []block, pass, lane, slice, laneLen, segmentLength, parallelism uint32) {
	startI := uint32(0)
	if pass == 0 && slice == 0 {
		startI = 2
	}
	for i := startI; i < segmentLength; i++ {
		idx := slice*segmentLength + i
		prevIdx := idx - 1
		if idx == 0 {
			prevIdx = laneLen - 1
		}
		prev := B[lane*laneLen+prevIdx]

		j1 := uint32(prev[0])
		j2 := uint32(prev[0] >> 32)

		var refLane uint32
		if pass == 0 && slice == 0 {
			refLane = lane
		} else {
			refLane = j2 % parallelism
		}
		sameLane := refLane == lane

		var refAreaSize int64
		switch {
		case pass == 0 && slice == 0:
			refAreaSize = int64(idx) - 1
		case pass == 0 && sameLane:
			refAreaSize = int64(slice)*int64(segmentLength) + int64(i) - 1
		case pass == 0 && !sameLane:
			if i == 0 {
				refAreaSize = int64(slice)*int64(segmentLength) - 1
			} else {
				refAreaSize = int64(slice) * int64(segmentLength)
			}
		case sameLane:
			refAreaSize = int64(laneLen) - int64(segmentLength) + int64(i) - 1
		default:
			if i == 0 {
				refAreaSize = int64(laneLen) - int64(segmentLength) - 1
			} else {
				refAreaSize = int64(laneLen) - int64(segmentLength)
			}
		}

		ra := uint64(refAreaSize)
		sq := (uint64(j1) * uint64(j1)) >> 32
		relativePosition := ra - 1 - ((ra * sq) >> 32)

		var startPosition uint32
		if pass != 0 {
			if slice == argon2SyncPoints-1 {
				startPosition = 0
			} else {
				startPosition = (slice + 1) * segmentLength
			}
		}

		refIdxInLane := uint32((uint64(startPosition) + relativePosition) % uint64(laneLen))
		refIdx := refLane*laneLen + refIdxInLane

		newBlock := argon2G(prev, B[refIdx])
		curIdx := lane*laneLen + idx
		if pass > 0 {
			old := B[curIdx]
			for k := range newBlock {
				newBlock[k] ^= old[k]
			}
		}
		B[curIdx] = newBlock
	}
}

// argon2G is the Argon2 compression function (RFC 9106 §3.5):
// G(X, Y) = P(X xor Y) xor (X xor Y), with P the BlaMka permutation
// applied first to the 8 rows then the 8 columns of the 1024-byte
// block viewed as 128 64-bit words.
func argon2G(x, y block) block {
	var r block
	for i := range r {
		r[i] = x[i] ^ y[i]
	}
	z := r
	argon2Permute(&z)
	var out block
	for i := range out {
		out[i] = z[i] ^ r[i]
	}
	return out
}

// argon2Permute applies P in place: BlaMka rounds over each of the 8
// rows of 16 words, then over each of the 8 "columns" formed by
// picking words {2i, 2i+1} from each of the 8 rows in turn.
func argon2Permute(t *block) {
	for i := 0; i < 8; i++ {
		b := 16 * i
		blamkaRound(t, [16]int{
			b, b + 1, b + 2, b + 3, b + 4, b + 5, b + 6, b + 7,
			b + 8, b + 9, b + 10, b + 11, b + 12, b + 13, b + 14, b + 15,
		})
	}
	for i := 0; i < 8; i++ {
		c := 2 * i
		blamkaRound(t, [16]int{
			c, c + 1, c + 16, c + 17, c + 32, c + 33, c + 48, c + 49,
			c + 64, c + 65, c + 80, c + 81, c + 96, c + 97, c + 112, c + 113,
		})
	}
}

// blamkaRound applies the 8 BlaMka mixing steps of one Blake2b-shaped
// round to the 16 block positions named in v, in the standard column
// then diagonal order.
func blamkaRound(t *block, v [16]int) {
	blamkaG(t, v[0], v[4], v[8], v[12])
	blamkaG(t, v[1], v[5], v[9], v[13])
	blamkaG(t, v[2], v[6], v[10], v[14])
	blamkaG(t, v[3], v[7], v[11], v[15])
	blamkaG(t, v[0], v[5], v[10], v[15])
	blamkaG(t, v[1], v[6], v[11], v[12])
	blamkaG(t, v[2], v[7], v[8], v[13])
	blamkaG(t, v[3], v[4], v[9], v[14])
}

// blamkaG is Argon2's modified Blake2b mixing function: the usual
// add-rotate-xor steps, but each addition is the "fBlaMka" operation
// x+y+2*lo32(x)*lo32(y) rather than plain addition.
func blamkaG(t *block, a, b, c, d int) {
	t[a] = fBlaMka(t[a], t[b])
	t[d] = rotr64(t[d]^t[a], 32)
	t[c] = fBlaMka(t[c], t[d])
	t[b] = rotr64(t[b]^t[c], 24)
	t[a] = fBlaMka(t[a], t[b])
	t[d] = rotr64(t[d]^t[a], 16)
	t[c] = fBlaMka(t[c], t[d])
	t[b] = rotr64(t[b]^t[c], 63)
}

func fBlaMka(x, y uint64) uint64 {
	const mask = 0xFFFFFFFF
	xl := x & mask
	yl := y & mask
	return x + y + 2*xl*yl
}

func rotr64(x uint64, n uint) uint64 {
	return (x >> n) | (x << (64 - n))
}

func blockToBytes(b block) []byte {
	out := make([]byte, argon2BlockSize)
	for i, w := range b {
		binary.LittleEndian.PutUint64(out[i*8:], w)
	}
	return out
}

func bytesToBlock(b []byte) block {
	var blk block
	for i := range blk {
		blk[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return blk
}
