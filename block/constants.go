package block

// Size and layout constants. All fixed and part of the on-disk contract;
// derived to the byte from the block layouts below and cross-checked
// against the reference implementation in original_source/.
const (
	Size = 4096 // BLOCK_SIZE

	headerSize = 8  // id u32 + lastWriteTime u32
	inodeSize  = 20 // headerSize + creationTime u32 + internalSize_b u32 + typeAndInlined u8 + reserved u8 + linkCounter u16

	MaxLinkNameLength = 28 // includes terminator

	hardlinkRecordSize = 4 + MaxLinkNameLength // target id u32 + name

	MaxNumberOfLinksToINode = 1<<16 - 1 // linkCounter is a u16

	// Both the inlined-DirectoryINode layout (inodeSize=20 header + 12 pad)
	// and the external DirectoryEntryList layout (headerSize=8 + 24 pad)
	// reserve exactly 32 bytes before the hardlink table.
	dirInlinePad  = 12
	direntryPad   = 24
	dirReservedSz = 32

	MaxLinksPerDirEntryList = (Size - dirReservedSz) / hardlinkRecordSize // 127

	MaxDirEntryListsPerDir = (Size - inodeSize) / 4 // 1019

	MaxBytesPerINode = Size - inodeSize // 4076

	MaxDataBlockListsPerFile = (Size - inodeSize) / 4 // 1019

	MaxDataBlocksPerDataBlockList = (Size - headerSize) / 4 // 1022

	MaxBytesPerDataBlock = Size - headerSize // 4088

	// MaxFileSize = MaxBytesPerDataBlock * MaxDataBlocksPerDataBlockList * MaxDataBlockListsPerFile,
	// which fits comfortably under a uint32.
	MaxFileSize = uint64(MaxBytesPerDataBlock) * uint64(MaxDataBlocksPerDataBlockList) * uint64(MaxDataBlockListsPerFile)

	// MaxHardlinksPerDir is chosen equal to MaxNumberOfLinksToINode (see
	// DESIGN.md OQ-1): the raw per-directory list capacity
	// (MaxDirEntryListsPerDir*MaxLinksPerDirEntryList) is far larger than a
	// linkCounter can ever record, so linkCounter overflow always rejects
	// first; keeping the two equal removes an unreachable code path.
	MaxHardlinksPerDir = MaxNumberOfLinksToINode
)

// INode type tags (upper nibble of the packed type/inlined byte).
const (
	TypeDir         uint8 = 1
	TypeRegularFile uint8 = 2
	TypeSymlink     uint8 = 3 // reserved, never produced
)

// typeAndInlined byte offset within an INode, relative to the INode's own
// start (used by FS's peekINodeType to avoid decoding a whole INode).
const TypeByteOffset = headerSize + 4 + 4 // 16
