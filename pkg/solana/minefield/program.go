package minefield

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Program IDs
var (
	ProgramID     = solana.MustPublicKeyFromBase58("5uAGzEhN7F9XNMxsmMUVhQEvEbUxzC1UFxBnAJAyrygn")
	RewardMint    = solana.MustPublicKeyFromBase58("8FviHi97yv6exyoTuwFYS3oymKFcQAgkUViFsUXMtNg7")
	TreasuryOwner = solana.MustPublicKeyFromBase58("7vzEoA6qPLqGXe5rxmMK7iha63znnLfwGppBrUfELajg")

	TokenProgramID           = solana.TokenProgramID
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
	SystemProgramID          = solana.SystemProgramID

	// SelfExecutor marks an automation with no external crank authority;
	// the program itself executes each round.
	SelfExecutor = solana.SystemProgramID
)

// Instruction discriminators
var (
	InstructionDeploy           = []byte{67, 36, 143, 118, 36, 164, 92, 217}
	InstructionCheckpoint       = []byte{213, 200, 19, 204, 240, 143, 184, 252}
	InstructionCreateAutomation = []byte{234, 208, 21, 187, 63, 147, 183, 254}
	InstructionCloseAutomation  = []byte{173, 28, 100, 215, 243, 180, 140, 234}
	InstructionTopUpAutomation  = []byte{20, 39, 233, 82, 238, 168, 226, 71}
	InstructionClaimRewards     = []byte{4, 144, 132, 71, 116, 23, 151, 80}
	InstructionClaimYield       = []byte{49, 74, 111, 7, 186, 22, 61, 165}
	InstructionStake            = []byte{206, 176, 202, 18, 200, 209, 179, 108}
)

// Seeds for PDAs
var (
	SeedBoard      = []byte("board")
	SeedRound      = []byte("round")
	SeedMiner      = []byte("miner")
	SeedAutomation = []byte("automation")
	SeedTreasury   = []byte("treasury")
	SeedStake      = []byte("stake")
)

// PDA helper functions

func GetBoardPDA() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{SeedBoard},
		ProgramID,
	)
}

func GetRoundPDA(roundID uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{SeedRound, serializeU64(roundID)},
		ProgramID,
	)
}

func GetMinerPDA(owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{SeedMiner, owner.Bytes()},
		ProgramID,
	)
}

func GetAutomationPDA(owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{SeedAutomation, owner.Bytes()},
		ProgramID,
	)
}

func GetTreasuryPDA() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{SeedTreasury},
		ProgramID,
	)
}

func GetStakePDA(owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{SeedStake, owner.Bytes()},
		ProgramID,
	)
}

// Serialization helpers

func serializeU64(value uint64) []byte {
	bytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(bytes, value)
	return bytes
}

func serializeU32(value uint32) []byte {
	bytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(bytes, value)
	return bytes
}

func serializeU64Vec(values []uint64) []byte {
	out := serializeU32(uint32(len(values)))
	for _, v := range values {
		out = append(out, serializeU64(v)...)
	}
	return out
}
