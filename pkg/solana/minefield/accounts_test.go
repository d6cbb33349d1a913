package minefield

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendU64(buf []byte, v uint64) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, v)
	return append(buf, out...)
}

func appendU32(buf []byte, v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return append(buf, out...)
}

func TestDecodeBoard(t *testing.T) {
	authority := solana.NewWallet().PublicKey()

	data := append([]byte{}, AccountBoardDiscriminator...)
	data = append(data, authority.Bytes()...)
	data = appendU64(data, 4200)         // current round
	data = appendU64(data, 600)          // round duration seconds
	data = append(data, 25)              // square count
	data = append(data, 0)               // paused

	board, err := DecodeBoard(data)
	require.NoError(t, err)
	assert.Equal(t, authority, board.Authority)
	assert.Equal(t, uint64(4200), board.CurrentRound)
	assert.Equal(t, uint64(600), board.RoundDurationSecs)
	assert.Equal(t, uint8(25), board.SquareCount)
	assert.Equal(t, uint8(0), board.Paused)
}

func TestDecodeRound(t *testing.T) {
	data := append([]byte{}, AccountRoundDiscriminator...)
	data = appendU64(data, 4200)
	data = appendU64(data, uint64(1700000000)) // start
	data = appendU64(data, uint64(1700000600)) // end
	data = appendU64(data, 3_500_000_000)      // total deployed
	data = appendU32(data, 17)                 // miner count

	round, err := DecodeRound(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(4200), round.ID)
	assert.Equal(t, int64(1700000000), round.StartTime)
	assert.Equal(t, int64(1700000600), round.EndTime)
	assert.Equal(t, uint64(3_500_000_000), round.TotalDeployed)
	assert.Equal(t, uint32(17), round.MinerCount)
}

func TestDecodeMiner(t *testing.T) {
	owner := solana.NewWallet().PublicKey()

	data := append([]byte{}, AccountMinerDiscriminator...)
	data = append(data, owner.Bytes()...)
	data = appendU64(data, 4199)          // checkpoint
	data = appendU64(data, 12_000_000)    // claimable tokens
	data = appendU64(data, 300_000)       // claimable yield

	miner, err := DecodeMiner(data)
	require.NoError(t, err)
	assert.Equal(t, owner, miner.Owner)
	assert.Equal(t, uint64(4199), miner.Checkpoint)
	assert.Equal(t, uint64(12_000_000), miner.ClaimableTokens)
	assert.Equal(t, uint64(300_000), miner.ClaimableYield)
}

func TestDecodeAutomation(t *testing.T) {
	owner := solana.NewWallet().PublicKey()

	data := append([]byte{}, AccountAutomationDiscriminator...)
	data = append(data, owner.Bytes()...)
	data = append(data, SelfExecutor.Bytes()...)
	data = appendU64(data, 4_000_000)     // per square
	data = appendU64(data, 1_000_000_000) // balance
	data = appendU32(data, (1<<25)-1)     // full board mask

	auto, err := DecodeAutomation(data)
	require.NoError(t, err)
	assert.Equal(t, owner, auto.Owner)
	assert.Equal(t, SelfExecutor, auto.Executor)
	assert.Equal(t, uint64(4_000_000), auto.AmountPerSquare)
	assert.Equal(t, uint64(1_000_000_000), auto.Balance)
	assert.Equal(t, uint32((1<<25)-1), auto.SquareMask)
}

func TestDecodeTreasury(t *testing.T) {
	data := append([]byte{}, AccountTreasuryDiscriminator...)
	data = appendU64(data, 9_000_000_000_000) // reward pool
	data = appendU64(data, 250_000_000_000)   // total emitted

	treasury, err := DecodeTreasury(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(9_000_000_000_000), treasury.RewardPool)
	assert.Equal(t, uint64(250_000_000_000), treasury.TotalEmitted)
}

func TestDecodeStakePosition(t *testing.T) {
	owner := solana.NewWallet().PublicKey()

	data := append([]byte{}, AccountStakeDiscriminator...)
	data = append(data, owner.Bytes()...)
	data = appendU64(data, 5_000_000_000) // staked
	data = appendU64(data, 40_000_000)    // pending yield
	data = appendU64(data, 4195)          // last yield round

	stake, err := DecodeStakePosition(data)
	require.NoError(t, err)
	assert.Equal(t, owner, stake.Owner)
	assert.Equal(t, uint64(5_000_000_000), stake.StakedTokens)
	assert.Equal(t, uint64(40_000_000), stake.PendingYield)
	assert.Equal(t, uint64(4195), stake.LastYieldRound)
}

func TestDecodeRejectsWrongDiscriminator(t *testing.T) {
	data := append([]byte{}, AccountRoundDiscriminator...)
	data = appendU64(data, 1)

	_, err := DecodeBoard(data)
	assert.ErrorContains(t, err, "unexpected discriminator")
}

func TestDecodeRejectsShortData(t *testing.T) {
	_, err := DecodeTreasury(AccountTreasuryDiscriminator[:4])
	assert.ErrorContains(t, err, "too short")

	data := append([]byte{}, AccountTreasuryDiscriminator...)
	data = appendU64(data, 1)
	// missing totalEmitted
	_, err = DecodeTreasury(data)
	assert.Error(t, err)
}

func TestCheckpointInstructionData(t *testing.T) {
	user := solana.NewWallet().PublicKey()

	ix, err := CreateCheckpointInstruction(user, []uint64{4198, 4199, 4200})
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+4+3*8)
	assert.Equal(t, InstructionCheckpoint, data[:8])
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[8:12]))
	assert.Equal(t, uint64(4198), binary.LittleEndian.Uint64(data[12:20]))
	assert.Equal(t, uint64(4200), binary.LittleEndian.Uint64(data[28:36]))
}

func TestDeployInstructionAccounts(t *testing.T) {
	user := solana.NewWallet().PublicKey()

	ix, err := CreateDeployInstruction(user, 4200)
	require.NoError(t, err)
	assert.Equal(t, ProgramID, ix.ProgramID())

	accounts := ix.Accounts()
	require.Len(t, accounts, 5)
	assert.Equal(t, user, accounts[3].PublicKey)
	assert.True(t, accounts[3].IsSigner)

	roundPDA, _, err := GetRoundPDA(4200)
	require.NoError(t, err)
	assert.Equal(t, roundPDA, accounts[1].PublicKey)
}
