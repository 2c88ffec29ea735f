package slot

// Bitmap 是某个 (资源, 日期) 的 96 位占用向量，位为 1 表示已占用。
// 零值表示全部空闲。
type Bitmap struct {
	Lo uint64 // 时间片 0~63
	Hi uint64 // 时间片 64~95
}

// RangeMask 返回 [start, end] 区间全部置位的位图，调用方需保证区间合法
func RangeMask(start, end int) Bitmap {
	var b Bitmap
	for i := start; i <= end; i++ {
		b.set(i)
	}
	return b
}

func (b Bitmap) IsOccupied(i int) bool {
	if i < 64 {
		return b.Lo&(1<<uint(i)) != 0
	}
	return b.Hi&(1<<uint(i-64)) != 0
}

func (b Bitmap) Overlaps(other Bitmap) bool {
	return b.Lo&other.Lo != 0 || b.Hi&other.Hi != 0
}

func (b Bitmap) Union(other Bitmap) Bitmap {
	return Bitmap{Lo: b.Lo | other.Lo, Hi: b.Hi | other.Hi}
}

func (b Bitmap) Clear(other Bitmap) Bitmap {
	return Bitmap{Lo: b.Lo &^ other.Lo, Hi: b.Hi &^ other.Hi}
}

// Free 返回长度为 96 的空闲向量，true 表示空闲
func (b Bitmap) Free() []bool {
	free := make([]bool, PerDay)
	for i := range free {
		free[i] = !b.IsOccupied(i)
	}
	return free
}

// FreeStarts 用滑动窗口找出所有能够容纳 n 个连续空闲时间片的起始下标
func (b Bitmap) FreeStarts(n int) []int {
	if n <= 0 {
		n = 1
	}
	starts := []int{}
	run := 0
	for i := 0; i < PerDay; i++ {
		if b.IsOccupied(i) {
			run = 0
			continue
		}
		run++
		if run >= n {
			starts = append(starts, i-n+1)
		}
	}
	return starts
}

// Bytes 按 redis SETBIT 的位序编码：偏移量 i 位于第 i/8 个字节的第 7-i%8 位
func (b Bitmap) Bytes() []byte {
	out := make([]byte, PerDay/8)
	for i := 0; i < PerDay; i++ {
		if b.IsOccupied(i) {
			out[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return out
}

// FromBytes 是 Bytes 的逆操作，多余或缺失的字节分别被忽略或视为空闲
func FromBytes(raw []byte) Bitmap {
	var b Bitmap
	for i := 0; i < PerDay && i/8 < len(raw); i++ {
		if raw[i/8]&(0x80>>uint(i%8)) != 0 {
			b.set(i)
		}
	}
	return b
}

func (b *Bitmap) set(i int) {
	if i < 64 {
		b.Lo |= 1 << uint(i)
		return
	}
	b.Hi |= 1 << uint(i-64)
}
