package permit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ptw/internal/models"
)

var (
	requester = models.Principal{ID: "u-req", Role: models.RoleRequester}
	manager   = models.Principal{ID: "u-am", Role: models.RoleAreaManager}
	safety    = models.Principal{ID: "u-so", Role: models.RoleSafetyOfficer}
	leader    = models.Principal{ID: "u-sl", Role: models.RoleSiteLeader}
	admin     = models.Principal{ID: "u-adm", Role: models.RoleAdmin}
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	policies, err := NewPolicyTable(DefaultPolicies())
	require.NoError(t, err)
	return NewService(NewMemStore(), DefaultCatalog(), policies)
}

func validCreateInput() CreateInput {
	start := time.Now().UTC().Truncate(time.Second)
	return CreateInput{
		SiteID:          1,
		Type:            string(models.TypeGeneral),
		WorkLocation:    "warehouse B, bay 4",
		WorkDescription: "replace roof sheeting",
		ControlMeasures: "barricades, signage, supervision",
		StartTime:       start,
		EndTime:         start.Add(8 * time.Hour),
		ReceiverName:    "J. Okafor",
		ReceiverContact: "+27 82 000 0000",
		TeamMembers:     []TeamMemberInput{{Name: "A. Dlamini", Contact: "082"}},
		HazardIDs:       []uint{1, 6},
		PPEItemIDs:      []uint{1},
		Checklist: []ChecklistAnswerInput{
			{QuestionID: 1, Answer: "yes"},
			{QuestionID: 2, Answer: "yes"},
			{QuestionID: 3, Answer: "na"},
		},
		DocumentURLs: []string{"https://files.example/swms/123.pdf"},
	}
}

func draftPermit(t *testing.T, svc *Service) *models.Permit {
	t.Helper()
	p, err := svc.Create(context.Background(), validCreateInput(), requester)
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, p.Status)
	return p
}

func pendingPermit(t *testing.T, svc *Service) *models.Permit {
	t.Helper()
	p := draftPermit(t, svc)
	p, err := svc.Submit(context.Background(), p.ID, requester)
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingApproval, p.Status)
	return p
}

func activePermit(t *testing.T, svc *Service) *models.Permit {
	t.Helper()
	p := pendingPermit(t, svc)
	ctx := context.Background()
	_, err := svc.RecordApproval(ctx, p.ID, models.RoleAreaManager, models.DecisionApproved, "", manager)
	require.NoError(t, err)
	p, err = svc.RecordApproval(ctx, p.ID, models.RoleSafetyOfficer, models.DecisionApproved, "", safety)
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, p.Status)
	return p
}

func requireCode(t *testing.T, err error, code Code) {
	t.Helper()
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok, "expected typed error, got %v", err)
	require.Equal(t, code, e.Code)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := validCreateInput()
	in.Type = "demolition"
	_, err := svc.Create(ctx, in, requester)
	requireCode(t, err, CodeInvalidInput)

	in = validCreateInput()
	in.EndTime = in.StartTime
	_, err = svc.Create(ctx, in, requester)
	requireCode(t, err, CodeInvalidEndTime)

	in = validCreateInput()
	in.SiteID = 0
	_, err = svc.Create(ctx, in, requester)
	requireCode(t, err, CodeInvalidInput)
}

func TestSerialsAreDistinctAndMonotonic(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seen := make(map[string]bool, 1000)
	prev := ""
	for i := 0; i < 1000; i++ {
		p, err := svc.Create(ctx, validCreateInput(), requester)
		require.NoError(t, err)
		require.NotEmpty(t, p.Serial)
		require.False(t, seen[p.Serial], "serial %s reused", p.Serial)
		seen[p.Serial] = true
		require.Greater(t, p.Serial, prev, "serials must follow creation order")
		prev = p.Serial
	}
	require.Equal(t, "PTW-000001", fmt.Sprintf("PTW-%06d", 1))
}

func TestSubmitRejectsIncompletePermit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := validCreateInput()
	in.HazardIDs = nil
	in.Checklist = in.Checklist[:1] // вопросы 2 и 3 без ответа
	p, err := svc.Create(ctx, in, requester)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, p.ID, requester)
	requireCode(t, err, CodeIncompleteSubmission)
	e, _ := AsError(err)
	require.Len(t, e.Violations, 3)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, got.Status)
	require.Empty(t, got.Approvals)
}

func TestSubmitFreezesApprovalChain(t *testing.T) {
	svc := newTestService(t)
	p := pendingPermit(t, svc)

	require.Len(t, p.Approvals, 2)
	require.NotNil(t, p.Approval(models.RoleAreaManager))
	require.NotNil(t, p.Approval(models.RoleSafetyOfficer))
	for _, a := range p.Approvals {
		require.Equal(t, models.DecisionPending, a.Decision)
	}

	// повторный submit запрещён
	_, err := svc.Submit(context.Background(), p.ID, requester)
	requireCode(t, err, CodeInvalidState)
}

func TestHighRiskTypeRequiresThreeRoles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := validCreateInput()
	in.Type = string(models.TypeHotWork)
	in.Checklist = []ChecklistAnswerInput{
		{QuestionID: 8, Answer: "yes"},
		{QuestionID: 9, Answer: "yes"},
		{QuestionID: 10, Answer: "yes"},
	}
	p, err := svc.Create(ctx, in, requester)
	require.NoError(t, err)
	p, err = svc.Submit(ctx, p.ID, requester)
	require.NoError(t, err)
	require.Len(t, p.Approvals, 3)
	require.NotNil(t, p.Approval(models.RoleSiteLeader))
}

func TestPartialChainStaysPending(t *testing.T) {
	svc := newTestService(t)
	p := pendingPermit(t, svc)

	got, err := svc.RecordApproval(context.Background(), p.ID, models.RoleAreaManager, models.DecisionApproved, "ok", manager)
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingApproval, got.Status)
}

func TestSingleVeto(t *testing.T) {
	svc := newTestService(t)
	p := pendingPermit(t, svc)
	ctx := context.Background()

	got, err := svc.RecordApproval(ctx, p.ID, models.RoleSafetyOfficer, models.DecisionRejected, "no gas test", safety)
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, got.Status)
	require.Equal(t, "no gas test", got.RejectReason)

	// решения других ролей после вето — AlreadyResolved, статус не меняется
	_, err = svc.RecordApproval(ctx, p.ID, models.RoleAreaManager, models.DecisionApproved, "", manager)
	requireCode(t, err, CodeAlreadyResolved)

	got, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, got.Status)
}

func TestDuplicateDecision(t *testing.T) {
	svc := newTestService(t)
	p := pendingPermit(t, svc)
	ctx := context.Background()

	_, err := svc.RecordApproval(ctx, p.ID, models.RoleAreaManager, models.DecisionApproved, "", manager)
	require.NoError(t, err)
	_, err = svc.RecordApproval(ctx, p.ID, models.RoleAreaManager, models.DecisionApproved, "", manager)
	requireCode(t, err, CodeDuplicateDecision)
}

func TestUnknownRole(t *testing.T) {
	svc := newTestService(t)
	p := pendingPermit(t, svc) // general: site_leader не в цепочке

	_, err := svc.RecordApproval(context.Background(), p.ID, models.RoleSiteLeader, models.DecisionApproved, "", leader)
	requireCode(t, err, CodeUnknownRole)
}

func TestApprovalRoleMismatchForbidden(t *testing.T) {
	svc := newTestService(t)
	p := pendingPermit(t, svc)
	ctx := context.Background()

	// заявитель не может решать за area_manager
	_, err := svc.RecordApproval(ctx, p.ID, models.RoleAreaManager, models.DecisionApproved, "", requester)
	requireCode(t, err, CodeForbidden)

	// admin может действовать за любую роль
	_, err = svc.RecordApproval(ctx, p.ID, models.RoleAreaManager, models.DecisionApproved, "", admin)
	require.NoError(t, err)
}

func TestCompletionAtomicity(t *testing.T) {
	svc := newTestService(t)
	p := pendingPermit(t, svc)
	ctx := context.Background()

	type result struct {
		status models.PermitStatus
		err    error
	}
	results := make([]result, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		got, err := svc.RecordApproval(ctx, p.ID, models.RoleAreaManager, models.DecisionApproved, "", manager)
		if got != nil {
			results[0] = result{got.Status, err}
		} else {
			results[0] = result{"", err}
		}
	}()
	go func() {
		defer wg.Done()
		got, err := svc.RecordApproval(ctx, p.ID, models.RoleSafetyOfficer, models.DecisionApproved, "", safety)
		if got != nil {
			results[1] = result{got.Status, err}
		} else {
			results[1] = result{"", err}
		}
	}()
	wg.Wait()

	require.NoError(t, results[0].err)
	require.NoError(t, results[1].err)

	// ровно один из двух вызовов довёл цепочку и увидел переход в active
	activations := 0
	for _, r := range results {
		if r.status == models.StatusActive {
			activations++
		}
	}
	require.Equal(t, 1, activations, "exactly one approval must complete the chain")

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, got.Status)
}

func TestExtensionMonotonicity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// approved: end_time строго растёт, наряд возвращается в active
	p := activePermit(t, svc)
	origEnd := p.EndTime
	newEnd := origEnd.Add(4 * time.Hour)
	got, err := svc.RequestExtension(ctx, p.ID, newEnd, "overrun on bay 4", requester)
	require.NoError(t, err)
	require.Equal(t, models.StatusExtensionRequested, got.Status)

	got, err = svc.ResolveExtension(ctx, p.ID, models.DecisionApproved, manager)
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, got.Status)
	require.True(t, got.EndTime.After(origEnd))
	require.Equal(t, newEnd.Unix(), got.EndTime.Unix())

	// rejected: end_time не меняется, наряд всё равно возвращается в active
	p2 := activePermit(t, svc)
	origEnd2 := p2.EndTime
	_, err = svc.RequestExtension(ctx, p2.ID, origEnd2.Add(time.Hour), "more time", requester)
	require.NoError(t, err)
	got, err = svc.ResolveExtension(ctx, p2.ID, models.DecisionRejected, manager)
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, got.Status)
	require.Equal(t, origEnd2.Unix(), got.EndTime.Unix())
}

func TestExtensionInvalidEndTime(t *testing.T) {
	svc := newTestService(t)
	p := activePermit(t, svc)

	_, err := svc.RequestExtension(context.Background(), p.ID, p.EndTime.Add(-time.Hour), "oops", requester)
	requireCode(t, err, CodeInvalidEndTime)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, got.Status)
	require.Nil(t, got.PendingExtension())
}

func TestSecondExtensionWhileRequested(t *testing.T) {
	svc := newTestService(t)
	p := activePermit(t, svc)
	ctx := context.Background()

	_, err := svc.RequestExtension(ctx, p.ID, p.EndTime.Add(time.Hour), "first", requester)
	require.NoError(t, err)

	// наряд уже в extension_requested — вторая заявка бьётся об автомат состояний
	_, err = svc.RequestExtension(ctx, p.ID, p.EndTime.Add(2*time.Hour), "second", requester)
	requireCode(t, err, CodeInvalidState)
}

func TestConflictingRequestGuard(t *testing.T) {
	// страховочная проверка инварианта «не более одной pending-заявки»
	// на рассинхронизированных данных
	p := &models.Permit{
		Serial:  "PTW-000099",
		Status:  models.StatusActive,
		EndTime: time.Now().Add(time.Hour),
		Extensions: []models.ExtensionRequest{
			{Decision: models.DecisionPending, NewEndTime: time.Now().Add(2 * time.Hour)},
		},
	}
	err := applyExtensionRequest(p, time.Now().Add(3*time.Hour), "r", "u")
	require.NotNil(t, err)
	require.Equal(t, CodeConflictingRequest, err.Code)
}

func TestResolveExtensionNoPending(t *testing.T) {
	svc := newTestService(t)
	p := activePermit(t, svc)

	_, err := svc.ResolveExtension(context.Background(), p.ID, models.DecisionApproved, manager)
	requireCode(t, err, CodeNoPendingRequest)
}

func TestResolveExtensionForbiddenOutsideChain(t *testing.T) {
	svc := newTestService(t)
	p := activePermit(t, svc)
	ctx := context.Background()

	_, err := svc.RequestExtension(ctx, p.ID, p.EndTime.Add(time.Hour), "more time", requester)
	require.NoError(t, err)

	_, err = svc.ResolveExtension(ctx, p.ID, models.DecisionApproved, requester)
	requireCode(t, err, CodeForbidden)
}

func TestSuspendResume(t *testing.T) {
	svc := newTestService(t)
	p := activePermit(t, svc)
	ctx := context.Background()

	_, err := svc.Suspend(ctx, p.ID, requester)
	requireCode(t, err, CodeForbidden)

	got, err := svc.Suspend(ctx, p.ID, safety)
	require.NoError(t, err)
	require.Equal(t, models.StatusSuspended, got.Status)

	// в приостановке нельзя ни продлить, ни закрыть
	_, err = svc.RequestExtension(ctx, p.ID, p.EndTime.Add(time.Hour), "r", requester)
	requireCode(t, err, CodeInvalidState)
	_, err = svc.Close(ctx, p.ID, ClosureInput{Housekeeping: true, ToolsRemoved: true, LocksRemoved: true, AreaRestored: true}, requester)
	requireCode(t, err, CodeInvalidState)

	got, err = svc.Resume(ctx, p.ID, admin)
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, got.Status)
}

func TestClosureRequiresAllFourChecks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// все 15 комбинаций хотя бы с одним false — IncompleteClosure
	for mask := 0; mask < 15; mask++ {
		p := activePermit(t, svc)
		in := ClosureInput{
			Housekeeping: mask&1 != 0,
			ToolsRemoved: mask&2 != 0,
			LocksRemoved: mask&4 != 0,
			AreaRestored: mask&8 != 0,
		}
		_, err := svc.Close(ctx, p.ID, in, requester)
		requireCode(t, err, CodeIncompleteClosure)

		got, err := svc.Get(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusActive, got.Status, "mask %04b", mask)
		require.Nil(t, got.Closure)
	}

	p := activePermit(t, svc)
	got, err := svc.Close(ctx, p.ID, ClosureInput{
		Housekeeping: true, ToolsRemoved: true, LocksRemoved: true, AreaRestored: true,
		Remarks: "handed back to operations",
	}, requester)
	require.NoError(t, err)
	require.Equal(t, models.StatusClosed, got.Status)
	require.NotNil(t, got.Closure)
	require.Equal(t, requester.ID, got.Closure.ClosedBy)
	require.False(t, got.Closure.ClosedAt.IsZero())

	// закрытый наряд заморожен
	_, err = svc.Close(ctx, p.ID, ClosureInput{Housekeeping: true, ToolsRemoved: true, LocksRemoved: true, AreaRestored: true}, requester)
	requireCode(t, err, CodeInvalidState)
}

func TestCloseDraftInvalidState(t *testing.T) {
	svc := newTestService(t)
	p := draftPermit(t, svc)

	_, err := svc.Close(context.Background(), p.ID, ClosureInput{
		Housekeeping: true, ToolsRemoved: true, LocksRemoved: true, AreaRestored: true,
	}, requester)
	requireCode(t, err, CodeInvalidState)
}

func TestCancelAuthorization(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := draftPermit(t, svc)
	_, err := svc.Cancel(ctx, p.ID, manager) // не создатель и не admin
	requireCode(t, err, CodeForbidden)

	got, err := svc.Cancel(ctx, p.ID, requester)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, got.Status)

	_, err = svc.Cancel(ctx, p.ID, requester)
	requireCode(t, err, CodeInvalidState)

	// admin может отменить чужой наряд
	p2 := activePermit(t, svc)
	got, err = svc.Cancel(ctx, p2.ID, admin)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, got.Status)
}

func TestCancelApprovalRace(t *testing.T) {
	svc := newTestService(t)
	p := pendingPermit(t, svc)
	ctx := context.Background()

	var wg sync.WaitGroup
	var cancelErr, approveErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, cancelErr = svc.Cancel(ctx, p.ID, requester)
	}()
	go func() {
		defer wg.Done()
		_, approveErr = svc.RecordApproval(ctx, p.ID, models.RoleAreaManager, models.DecisionApproved, "", manager)
	}()
	wg.Wait()

	// cancel из pending_approval валиден всегда; согласование либо успело
	// до отмены, либо получило InvalidState — но не тихую перезапись
	require.NoError(t, cancelErr)
	if approveErr != nil {
		requireCode(t, approveErr, CodeInvalidState)
	}
	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, got.Status)
}

func TestExpiredIsDerived(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := validCreateInput()
	in.StartTime = time.Now().UTC().Add(-10 * time.Hour)
	in.EndTime = time.Now().UTC().Add(-2 * time.Hour)
	p, err := svc.Create(ctx, in, requester)
	require.NoError(t, err)
	p, err = svc.Submit(ctx, p.ID, requester)
	require.NoError(t, err)
	_, err = svc.RecordApproval(ctx, p.ID, models.RoleAreaManager, models.DecisionApproved, "", manager)
	require.NoError(t, err)
	p, err = svc.RecordApproval(ctx, p.ID, models.RoleSafetyOfficer, models.DecisionApproved, "", safety)
	require.NoError(t, err)

	require.Equal(t, models.StatusActive, p.Status, "канонический статус не меняется")
	require.True(t, p.ExpiredAt(time.Now().UTC()))

	store := svc.store.(*memStore)
	expired, err := store.ListExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, p.ID, expired[0].ID)
}

func TestListFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	draftPermit(t, svc)
	activePermit(t, svc)

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	active, err := svc.List(ctx, ListFilter{Status: models.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)

	none, err := svc.List(ctx, ListFilter{SiteID: 42})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestGetUnknownPermit(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), 12345)
	requireCode(t, err, CodeNotFound)
}
