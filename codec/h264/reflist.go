// reflist.go builds the reference picture lists out of the DPB the way
// the decoding process orders them: P slices prefer recent frames, B
// slices prefer display-order neighbors.

package h264

import (
	"github.com/go-ng/container/heap"
	"github.com/go-ng/xsort"

	"github.com/xaionaro-go/m2mcodec/control"
)

// packOrderKey packs a sort key and a DPB index into one heap item. The
// index occupies the low byte, so entries with equal keys pop in
// ascending DPB order.
func packOrderKey(key int64, idx int) int64 {
	return key<<8 | int64(idx)
}

func popAllIndexes(q *xsort.OrderedAsc[int64]) []int {
	result := make([]int, 0, len(*q))
	for len(*q) > 0 {
		result = append(result, int(heap.Pop(q)&0xff))
	}
	return result
}

// BuildRefPicListP returns the reference list of a P slice: the active
// short-term entries by descending frame number, then the long-term ones
// by ascending pic number.
func BuildRefPicListP(params *control.H264DecodeParams) []int {
	shortTerm := &xsort.OrderedAsc[int64]{}
	longTerm := &xsort.OrderedAsc[int64]{}
	for _, idx := range params.ActiveDPBEntries() {
		entry := &params.DPB[idx]
		if entry.Flags&control.H264DPBEntryFlagLongTerm != 0 {
			heap.Push(longTerm, packOrderKey(int64(entry.PicNum), idx))
			continue
		}
		heap.Push(shortTerm, packOrderKey(-int64(entry.FrameNum), idx))
	}
	return append(popAllIndexes(shortTerm), popAllIndexes(longTerm)...)
}

// BuildRefPicListsB returns the reference lists of a B slice. List 0
// walks the past (closest picture order first) and then the future;
// list 1 mirrors it. Long-term entries go last in both.
func BuildRefPicListsB(params *control.H264DecodeParams) (b0 []int, b1 []int) {
	curPOC := int64(params.PicOrderCnt())
	past := &xsort.OrderedAsc[int64]{}
	future := &xsort.OrderedAsc[int64]{}
	longTerm := &xsort.OrderedAsc[int64]{}
	for _, idx := range params.ActiveDPBEntries() {
		entry := &params.DPB[idx]
		if entry.Flags&control.H264DPBEntryFlagLongTerm != 0 {
			heap.Push(longTerm, packOrderKey(int64(entry.PicNum), idx))
			continue
		}
		poc := int64(entry.PicOrderCnt())
		if poc < curPOC {
			heap.Push(past, packOrderKey(-poc, idx))
		} else {
			heap.Push(future, packOrderKey(poc, idx))
		}
	}
	pastIdxs := popAllIndexes(past)
	futureIdxs := popAllIndexes(future)
	longTermIdxs := popAllIndexes(longTerm)

	b0 = make([]int, 0, len(pastIdxs)+len(futureIdxs)+len(longTermIdxs))
	b0 = append(append(append(b0, pastIdxs...), futureIdxs...), longTermIdxs...)
	b1 = make([]int, 0, cap(b0))
	b1 = append(append(append(b1, futureIdxs...), pastIdxs...), longTermIdxs...)
	return b0, b1
}
