package minefield

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Account discriminators
var (
	AccountBoardDiscriminator      = []byte{79, 48, 160, 63, 153, 132, 240, 56}
	AccountRoundDiscriminator      = []byte{87, 127, 165, 51, 73, 78, 116, 174}
	AccountMinerDiscriminator      = []byte{223, 113, 15, 54, 123, 122, 140, 100}
	AccountAutomationDiscriminator = []byte{235, 214, 138, 190, 117, 163, 210, 233}
	AccountTreasuryDiscriminator   = []byte{238, 239, 123, 238, 89, 1, 168, 253}
	AccountStakeDiscriminator      = []byte{78, 165, 30, 111, 171, 125, 11, 220}
)

// Board is the global program state account.
type Board struct {
	Discriminator     uint64
	Authority         solana.PublicKey
	CurrentRound      uint64
	RoundDurationSecs uint64
	SquareCount       uint8
	Paused            uint8
}

// Round is a single game round account.
type Round struct {
	Discriminator uint64
	ID            uint64
	StartTime     int64
	EndTime       int64
	TotalDeployed uint64
	MinerCount    uint32
}

// Miner is the per-wallet state account.
type Miner struct {
	Discriminator   uint64
	Owner           solana.PublicKey
	Checkpoint      uint64
	ClaimableTokens uint64
	ClaimableYield  uint64
}

// Automation is the escrow account the program deploys from each round.
type Automation struct {
	Discriminator   uint64
	Owner           solana.PublicKey
	Executor        solana.PublicKey
	AmountPerSquare uint64
	Balance         uint64
	SquareMask      uint32
}

// Treasury holds the accumulated reward pool, in reward-token base units.
type Treasury struct {
	Discriminator uint64
	RewardPool    uint64
	TotalEmitted  uint64
}

// StakePosition is the miner's staked reward-token position.
type StakePosition struct {
	Discriminator  uint64
	Owner          solana.PublicKey
	StakedTokens   uint64
	PendingYield   uint64
	LastYieldRound uint64
}

func checkDiscriminator(data, want []byte, name string) error {
	if len(data) < 8 {
		return fmt.Errorf("data too short for %s", name)
	}
	if !bytes.Equal(data[:8], want) {
		return fmt.Errorf("unexpected discriminator for %s", name)
	}
	return nil
}

// DecodeBoard parses a raw board account.
func DecodeBoard(data []byte) (*Board, error) {
	if err := checkDiscriminator(data, AccountBoardDiscriminator, "Board"); err != nil {
		return nil, err
	}
	board := &Board{}
	reader := bytes.NewReader(data)

	if err := binary.Read(reader, binary.LittleEndian, &board.Discriminator); err != nil {
		return nil, fmt.Errorf("failed to read discriminator: %w", err)
	}
	if err := readPubkey(reader, &board.Authority); err != nil {
		return nil, fmt.Errorf("failed to read authority: %w", err)
	}
	fields := []*uint64{&board.CurrentRound, &board.RoundDurationSecs}
	for _, field := range fields {
		if err := binary.Read(reader, binary.LittleEndian, field); err != nil {
			return nil, fmt.Errorf("failed to read u64 field: %w", err)
		}
	}
	if err := binary.Read(reader, binary.LittleEndian, &board.SquareCount); err != nil {
		return nil, fmt.Errorf("failed to read squareCount: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &board.Paused); err != nil {
		return nil, fmt.Errorf("failed to read paused: %w", err)
	}
	return board, nil
}

// DecodeRound parses a raw round account.
func DecodeRound(data []byte) (*Round, error) {
	if err := checkDiscriminator(data, AccountRoundDiscriminator, "Round"); err != nil {
		return nil, err
	}
	round := &Round{}
	reader := bytes.NewReader(data)

	if err := binary.Read(reader, binary.LittleEndian, &round.Discriminator); err != nil {
		return nil, fmt.Errorf("failed to read discriminator: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &round.ID); err != nil {
		return nil, fmt.Errorf("failed to read id: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &round.StartTime); err != nil {
		return nil, fmt.Errorf("failed to read startTime: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &round.EndTime); err != nil {
		return nil, fmt.Errorf("failed to read endTime: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &round.TotalDeployed); err != nil {
		return nil, fmt.Errorf("failed to read totalDeployed: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &round.MinerCount); err != nil {
		return nil, fmt.Errorf("failed to read minerCount: %w", err)
	}
	return round, nil
}

// DecodeMiner parses a raw miner account.
func DecodeMiner(data []byte) (*Miner, error) {
	if err := checkDiscriminator(data, AccountMinerDiscriminator, "Miner"); err != nil {
		return nil, err
	}
	miner := &Miner{}
	reader := bytes.NewReader(data)

	if err := binary.Read(reader, binary.LittleEndian, &miner.Discriminator); err != nil {
		return nil, fmt.Errorf("failed to read discriminator: %w", err)
	}
	if err := readPubkey(reader, &miner.Owner); err != nil {
		return nil, fmt.Errorf("failed to read owner: %w", err)
	}
	fields := []*uint64{&miner.Checkpoint, &miner.ClaimableTokens, &miner.ClaimableYield}
	for _, field := range fields {
		if err := binary.Read(reader, binary.LittleEndian, field); err != nil {
			return nil, fmt.Errorf("failed to read u64 field: %w", err)
		}
	}
	return miner, nil
}

// DecodeAutomation parses a raw automation account.
func DecodeAutomation(data []byte) (*Automation, error) {
	if err := checkDiscriminator(data, AccountAutomationDiscriminator, "Automation"); err != nil {
		return nil, err
	}
	auto := &Automation{}
	reader := bytes.NewReader(data)

	if err := binary.Read(reader, binary.LittleEndian, &auto.Discriminator); err != nil {
		return nil, fmt.Errorf("failed to read discriminator: %w", err)
	}
	if err := readPubkey(reader, &auto.Owner); err != nil {
		return nil, fmt.Errorf("failed to read owner: %w", err)
	}
	if err := readPubkey(reader, &auto.Executor); err != nil {
		return nil, fmt.Errorf("failed to read executor: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &auto.AmountPerSquare); err != nil {
		return nil, fmt.Errorf("failed to read amountPerSquare: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &auto.Balance); err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &auto.SquareMask); err != nil {
		return nil, fmt.Errorf("failed to read squareMask: %w", err)
	}
	return auto, nil
}

// DecodeTreasury parses a raw treasury account.
func DecodeTreasury(data []byte) (*Treasury, error) {
	if err := checkDiscriminator(data, AccountTreasuryDiscriminator, "Treasury"); err != nil {
		return nil, err
	}
	treasury := &Treasury{}
	reader := bytes.NewReader(data)

	if err := binary.Read(reader, binary.LittleEndian, &treasury.Discriminator); err != nil {
		return nil, fmt.Errorf("failed to read discriminator: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &treasury.RewardPool); err != nil {
		return nil, fmt.Errorf("failed to read rewardPool: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &treasury.TotalEmitted); err != nil {
		return nil, fmt.Errorf("failed to read totalEmitted: %w", err)
	}
	return treasury, nil
}

// DecodeStakePosition parses a raw stake account.
func DecodeStakePosition(data []byte) (*StakePosition, error) {
	if err := checkDiscriminator(data, AccountStakeDiscriminator, "StakePosition"); err != nil {
		return nil, err
	}
	stake := &StakePosition{}
	reader := bytes.NewReader(data)

	if err := binary.Read(reader, binary.LittleEndian, &stake.Discriminator); err != nil {
		return nil, fmt.Errorf("failed to read discriminator: %w", err)
	}
	if err := readPubkey(reader, &stake.Owner); err != nil {
		return nil, fmt.Errorf("failed to read owner: %w", err)
	}
	fields := []*uint64{&stake.StakedTokens, &stake.PendingYield, &stake.LastYieldRound}
	for _, field := range fields {
		if err := binary.Read(reader, binary.LittleEndian, field); err != nil {
			return nil, fmt.Errorf("failed to read u64 field: %w", err)
		}
	}
	return stake, nil
}

func readPubkey(reader *bytes.Reader, out *solana.PublicKey) error {
	var keyBytes [32]byte
	if err := binary.Read(reader, binary.LittleEndian, &keyBytes); err != nil {
		return err
	}
	*out = solana.PublicKeyFromBytes(keyBytes[:])
	return nil
}
