package minefield

import (
	"bytes"

	"github.com/gagliardetto/solana-go"
)

// Instruction builders

// CreateDeployInstruction commits the miner's stake into the given round.
func CreateDeployInstruction(user solana.PublicKey, roundID uint64) (solana.Instruction, error) {
	boardPDA, _, err := GetBoardPDA()
	if err != nil {
		return nil, err
	}
	roundPDA, _, err := GetRoundPDA(roundID)
	if err != nil {
		return nil, err
	}
	minerPDA, _, err := GetMinerPDA(user)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: boardPDA, IsWritable: false, IsSigner: false},
		{PublicKey: roundPDA, IsWritable: true, IsSigner: false},
		{PublicKey: minerPDA, IsWritable: true, IsSigner: false},
		{PublicKey: user, IsWritable: true, IsSigner: true},
		{PublicKey: SystemProgramID, IsWritable: false, IsSigner: false},
	}

	data := bytes.Join([][]byte{
		InstructionDeploy,
		serializeU64(roundID),
	}, nil)

	return solana.NewInstruction(
		ProgramID,
		accounts,
		data,
	), nil
}

// CreateCheckpointInstruction settles the given past rounds for the miner.
func CreateCheckpointInstruction(user solana.PublicKey, rounds []uint64) (solana.Instruction, error) {
	boardPDA, _, err := GetBoardPDA()
	if err != nil {
		return nil, err
	}
	minerPDA, _, err := GetMinerPDA(user)
	if err != nil {
		return nil, err
	}
	treasuryPDA, _, err := GetTreasuryPDA()
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: boardPDA, IsWritable: false, IsSigner: false},
		{PublicKey: minerPDA, IsWritable: true, IsSigner: false},
		{PublicKey: treasuryPDA, IsWritable: true, IsSigner: false},
		{PublicKey: user, IsWritable: true, IsSigner: true},
		{PublicKey: SystemProgramID, IsWritable: false, IsSigner: false},
	}

	data := bytes.Join([][]byte{
		InstructionCheckpoint,
		serializeU64Vec(rounds),
	}, nil)

	return solana.NewInstruction(
		ProgramID,
		accounts,
		data,
	), nil
}

// CreateCreateAutomationInstruction opens the escrow and funds the deposit.
func CreateCreateAutomationInstruction(
	user solana.PublicKey,
	amountPerSquare uint64,
	squareMask uint32,
	deposit uint64,
) (solana.Instruction, error) {
	boardPDA, _, err := GetBoardPDA()
	if err != nil {
		return nil, err
	}
	automationPDA, _, err := GetAutomationPDA(user)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: boardPDA, IsWritable: false, IsSigner: false},
		{PublicKey: automationPDA, IsWritable: true, IsSigner: false},
		{PublicKey: user, IsWritable: true, IsSigner: true},
		{PublicKey: SelfExecutor, IsWritable: false, IsSigner: false},
		{PublicKey: SystemProgramID, IsWritable: false, IsSigner: false},
	}

	data := bytes.Join([][]byte{
		InstructionCreateAutomation,
		serializeU64(amountPerSquare),
		serializeU32(squareMask),
		serializeU64(deposit),
	}, nil)

	return solana.NewInstruction(
		ProgramID,
		accounts,
		data,
	), nil
}

// CreateCloseAutomationInstruction closes the escrow and refunds its balance
// to the owner.
func CreateCloseAutomationInstruction(user solana.PublicKey) (solana.Instruction, error) {
	automationPDA, _, err := GetAutomationPDA(user)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: automationPDA, IsWritable: true, IsSigner: false},
		{PublicKey: user, IsWritable: true, IsSigner: true},
		{PublicKey: SystemProgramID, IsWritable: false, IsSigner: false},
	}

	return solana.NewInstruction(
		ProgramID,
		accounts,
		InstructionCloseAutomation,
	), nil
}

// CreateTopUpAutomationInstruction adds lamports to the escrow balance.
func CreateTopUpAutomationInstruction(user solana.PublicKey, lamports uint64) (solana.Instruction, error) {
	automationPDA, _, err := GetAutomationPDA(user)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: automationPDA, IsWritable: true, IsSigner: false},
		{PublicKey: user, IsWritable: true, IsSigner: true},
		{PublicKey: SystemProgramID, IsWritable: false, IsSigner: false},
	}

	data := bytes.Join([][]byte{
		InstructionTopUpAutomation,
		serializeU64(lamports),
	}, nil)

	return solana.NewInstruction(
		ProgramID,
		accounts,
		data,
	), nil
}

// CreateClaimRewardsInstruction moves accrued reward tokens into the
// owner's associated token account.
func CreateClaimRewardsInstruction(user solana.PublicKey) (solana.Instruction, error) {
	minerPDA, _, err := GetMinerPDA(user)
	if err != nil {
		return nil, err
	}
	treasuryPDA, _, err := GetTreasuryPDA()
	if err != nil {
		return nil, err
	}
	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, RewardMint)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: minerPDA, IsWritable: true, IsSigner: false},
		{PublicKey: treasuryPDA, IsWritable: true, IsSigner: false},
		{PublicKey: RewardMint, IsWritable: true, IsSigner: false},
		{PublicKey: associatedUser, IsWritable: true, IsSigner: false},
		{PublicKey: user, IsWritable: true, IsSigner: true},
		{PublicKey: TokenProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: AssociatedTokenProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: SystemProgramID, IsWritable: false, IsSigner: false},
	}

	return solana.NewInstruction(
		ProgramID,
		accounts,
		InstructionClaimRewards,
	), nil
}

// CreateClaimYieldInstruction moves accrued staking yield into the owner's
// associated token account.
func CreateClaimYieldInstruction(user solana.PublicKey) (solana.Instruction, error) {
	stakePDA, _, err := GetStakePDA(user)
	if err != nil {
		return nil, err
	}
	treasuryPDA, _, err := GetTreasuryPDA()
	if err != nil {
		return nil, err
	}
	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, RewardMint)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: stakePDA, IsWritable: true, IsSigner: false},
		{PublicKey: treasuryPDA, IsWritable: true, IsSigner: false},
		{PublicKey: RewardMint, IsWritable: true, IsSigner: false},
		{PublicKey: associatedUser, IsWritable: true, IsSigner: false},
		{PublicKey: user, IsWritable: true, IsSigner: true},
		{PublicKey: TokenProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: AssociatedTokenProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: SystemProgramID, IsWritable: false, IsSigner: false},
	}

	return solana.NewInstruction(
		ProgramID,
		accounts,
		InstructionClaimYield,
	), nil
}

// CreateStakeInstruction locks reward tokens into the stake position.
func CreateStakeInstruction(user solana.PublicKey, tokens uint64) (solana.Instruction, error) {
	stakePDA, _, err := GetStakePDA(user)
	if err != nil {
		return nil, err
	}
	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, RewardMint)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: stakePDA, IsWritable: true, IsSigner: false},
		{PublicKey: associatedUser, IsWritable: true, IsSigner: false},
		{PublicKey: RewardMint, IsWritable: false, IsSigner: false},
		{PublicKey: user, IsWritable: true, IsSigner: true},
		{PublicKey: TokenProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: SystemProgramID, IsWritable: false, IsSigner: false},
	}

	data := bytes.Join([][]byte{
		InstructionStake,
		serializeU64(tokens),
	}, nil)

	return solana.NewInstruction(
		ProgramID,
		accounts,
		data,
	), nil
}
