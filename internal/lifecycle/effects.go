package lifecycle

import "strings"

// View names a client-side read model that a mutation can change.
type View string

const (
	ViewTask           View = "task"
	ViewTaskLists      View = "task_lists"
	ViewWalletBalance  View = "wallet_balance"
	ViewDepositBalance View = "deposit_balance"
	ViewTransactions   View = "transactions"
	ViewActivityLog    View = "activity_log"
	ViewWithdrawals    View = "withdrawals"
	ViewVerifications  View = "verifications"
	ViewProfile        View = "profile"
	ViewAds            View = "ads"
	ViewStats          View = "stats"
)

// Op is a state-mutating operation.
type Op string

const (
	OpCreateTask         Op = "create_task"
	OpAcceptTask         Op = "accept_task"
	OpSubmitProof        Op = "submit_proof"
	OpApproveReview      Op = "approve_review"
	OpRejectReview       Op = "reject_review"
	OpRequestRevision    Op = "request_revision"
	OpModerateTask       Op = "moderate_task"
	OpDeclineTask        Op = "decline_task"
	OpDeposit            Op = "deposit"
	OpRequestWithdrawal  Op = "request_withdrawal"
	OpApproveWithdrawal  Op = "approve_withdrawal"
	OpRejectWithdrawal   Op = "reject_withdrawal"
	OpRegister           Op = "register"
	OpSaveProfile        Op = "save_profile"
	OpSubmitVerification Op = "submit_verification"
	OpVerifyUser         Op = "verify_user"
	OpAssignRole         Op = "assign_role"
	OpUpdateAds          Op = "update_ads"
	OpSeed               Op = "seed"
)

var effects = map[Op][]View{
	OpCreateTask:         {ViewTaskLists, ViewDepositBalance, ViewTransactions, ViewActivityLog, ViewStats},
	OpAcceptTask:         {ViewTask, ViewTaskLists, ViewActivityLog},
	OpSubmitProof:        {ViewTask, ViewTaskLists, ViewActivityLog},
	OpApproveReview:      {ViewTask, ViewTaskLists, ViewWalletBalance, ViewTransactions, ViewActivityLog, ViewStats},
	OpRejectReview:       {ViewTask, ViewTaskLists, ViewDepositBalance, ViewTransactions, ViewActivityLog},
	OpRequestRevision:    {ViewTask, ViewTaskLists, ViewDepositBalance, ViewTransactions, ViewActivityLog},
	OpModerateTask:       {ViewTask, ViewTaskLists},
	OpDeclineTask:        {ViewTask, ViewTaskLists, ViewDepositBalance, ViewTransactions, ViewStats},
	OpDeposit:            {ViewDepositBalance, ViewTransactions, ViewActivityLog},
	OpRequestWithdrawal:  {ViewWithdrawals, ViewActivityLog},
	OpApproveWithdrawal:  {ViewWithdrawals, ViewWalletBalance, ViewTransactions, ViewActivityLog, ViewStats},
	OpRejectWithdrawal:   {ViewWithdrawals, ViewActivityLog, ViewStats},
	OpRegister:           {ViewProfile},
	OpSaveProfile:        {ViewProfile},
	OpSubmitVerification: {ViewProfile, ViewVerifications},
	OpVerifyUser:         {ViewProfile, ViewVerifications},
	OpAssignRole:         {ViewProfile},
	OpUpdateAds:          {ViewAds},
	OpSeed:               {ViewTaskLists, ViewAds, ViewStats},
}

// EffectsOf returns the views op can change.
func EffectsOf(op Op) []View {
	v := effects[op]
	out := make([]View, len(v))
	copy(out, v)
	return out
}

// Header renders the effect set of op as a comma separated list.
func Header(op Op) string {
	v := effects[op]
	parts := make([]string, len(v))
	for i, view := range v {
		parts[i] = string(view)
	}
	return strings.Join(parts, ",")
}
