package service_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/propertyhub/lease-planner/internal/auth"
	"github.com/propertyhub/lease-planner/internal/config"
	"github.com/propertyhub/lease-planner/internal/contract"
	"github.com/propertyhub/lease-planner/internal/events"
	"github.com/propertyhub/lease-planner/internal/service"
	"github.com/propertyhub/lease-planner/internal/store"
	"gorm.io/gorm"
)

var (
	landlord = auth.User{Username: "alice", Organization: "acme"}
	tenant   = auth.User{Username: "bob", Organization: "acme"}
	stranger = auth.User{Username: "mallory", Organization: "acme"}
)

func newForm() service.ContractForm {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	return service.ContractForm{
		Title:           "Flat 4B",
		PropertyAddress: "Strada Lipscani 12, Bucharest",
		TenantID:        tenant.Username,
		RentAmount:      250000,
		Currency:        "ron",
		StartDate:       &start,
		EndDate:         &end,
	}
}

var _ = Describe("contract service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration(context.TODO())).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM contracts;")
	})

	Context("create", func() {
		It("creates a draft with the user as landlord", func() {
			srv := service.NewContractService(s, nil)

			c, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())
			Expect(c.Status).To(Equal(string(contract.StatusDraft)))
			Expect(c.LandlordID).To(Equal("alice"))
			Expect(c.TenantID).To(Equal("bob"))
			Expect(c.OrgID).To(Equal("acme"))
			Expect(c.Currency).To(Equal("RON"))

			count := 0
			Expect(gormdb.Raw("SELECT COUNT(*) FROM contracts;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("rejects a landlord renting to themselves", func() {
			srv := service.NewContractService(s, nil)
			form := newForm()
			form.TenantID = landlord.Username

			_, err := srv.CreateContract(context.TODO(), landlord, form)
			Expect(err).ToNot(BeNil())
			_, ok := err.(*service.ErrInvalidContract)
			Expect(ok).To(BeTrue())
		})

		It("rejects a contract ending before it starts", func() {
			srv := service.NewContractService(s, nil)
			form := newForm()
			*form.EndDate = form.StartDate.AddDate(0, -1, 0)

			_, err := srv.CreateContract(context.TODO(), landlord, form)
			_, ok := err.(*service.ErrInvalidContract)
			Expect(ok).To(BeTrue())
		})

		It("rejects a missing title", func() {
			srv := service.NewContractService(s, nil)
			form := newForm()
			form.Title = "  "

			_, err := srv.CreateContract(context.TODO(), landlord, form)
			_, ok := err.(*service.ErrInvalidContract)
			Expect(ok).To(BeTrue())
		})
	})

	Context("get and list", func() {
		It("lists only the contracts of the user", func() {
			srv := service.NewContractService(s, nil)
			_, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())

			form := newForm()
			form.TenantID = "carol"
			_, err = srv.CreateContract(context.TODO(), landlord, form)
			Expect(err).To(BeNil())

			contracts, err := srv.ListContracts(context.TODO(), landlord, service.ContractFilter{})
			Expect(err).To(BeNil())
			Expect(contracts).To(HaveLen(2))

			contracts, err = srv.ListContracts(context.TODO(), tenant, service.ContractFilter{})
			Expect(err).To(BeNil())
			Expect(contracts).To(HaveLen(1))

			contracts, err = srv.ListContracts(context.TODO(), stranger, service.ContractFilter{})
			Expect(err).To(BeNil())
			Expect(contracts).To(HaveLen(0))
		})

		It("filters by status", func() {
			srv := service.NewContractService(s, nil)
			c, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())
			_, err = srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())
			_, err = srv.ApplyAction(context.TODO(), landlord, c.ID, contract.ActionSendForSignature)
			Expect(err).To(BeNil())

			contracts, err := srv.ListContracts(context.TODO(), landlord, service.ContractFilter{Status: string(contract.StatusPendingSignature)})
			Expect(err).To(BeNil())
			Expect(contracts).To(HaveLen(1))
			Expect(contracts[0].ID).To(Equal(c.ID))
		})

		It("forbids a user who is not a party", func() {
			srv := service.NewContractService(s, nil)
			c, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())

			_, err = srv.GetContract(context.TODO(), stranger, c.ID)
			_, ok := err.(*service.ErrAccessForbidden)
			Expect(ok).To(BeTrue())
		})

		It("returns not found for a missing contract", func() {
			srv := service.NewContractService(s, nil)
			_, err := srv.GetContract(context.TODO(), landlord, uuid.New())
			_, ok := err.(*service.ErrResourceNotFound)
			Expect(ok).To(BeTrue())
		})
	})

	Context("actions", func() {
		It("lists the actions available to each party", func() {
			srv := service.NewContractService(s, nil)
			c, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())

			transitions, err := srv.ListActions(context.TODO(), landlord, c.ID)
			Expect(err).To(BeNil())
			Expect(transitions).To(HaveLen(2))

			transitions, err = srv.ListActions(context.TODO(), tenant, c.ID)
			Expect(err).To(BeNil())
			Expect(transitions).To(BeEmpty())
		})

		It("runs the full lifecycle", func() {
			w := newTestWriter()
			producer := events.NewEventProducer(w)
			srv := service.NewContractService(s, producer)

			c, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())

			steps := []struct {
				user   auth.User
				action contract.Action
				status contract.Status
			}{
				{landlord, contract.ActionSendForSignature, contract.StatusPendingSignature},
				{tenant, contract.ActionSign, contract.StatusActive},
				{tenant, contract.ActionRequestTermination, contract.StatusPendingTermination},
				{landlord, contract.ActionConfirmTermination, contract.StatusTerminated},
			}
			for _, step := range steps {
				updated, err := srv.ApplyAction(context.TODO(), step.user, c.ID, step.action)
				Expect(err).To(BeNil())
				Expect(updated.Status).To(Equal(string(step.status)))
			}

			Expect(producer.Close()).To(Succeed())
			Expect(w.Len()).To(Equal(4))
			Expect(w.Get(0).Type()).To(Equal(events.ContractMessageKind))

			var last events.ContractEvent
			Expect(json.Unmarshal(w.Get(3).Data(), &last)).To(Succeed())
			Expect(last.ContractID).To(Equal(c.ID.String()))
			Expect(last.Actor).To(Equal("alice"))
			Expect(last.Role).To(Equal("landlord"))
			Expect(last.From).To(Equal("pending_termination"))
			Expect(last.To).To(Equal("terminated"))
		})

		It("forbids the tenant from sending for signature", func() {
			srv := service.NewContractService(s, nil)
			c, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())

			_, err = srv.ApplyAction(context.TODO(), tenant, c.ID, contract.ActionSendForSignature)
			_, ok := err.(*service.ErrTransitionForbidden)
			Expect(ok).To(BeTrue())

			stored, err := srv.GetContract(context.TODO(), landlord, c.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(string(contract.StatusDraft)))
		})

		It("forbids a stranger from acting", func() {
			srv := service.NewContractService(s, nil)
			c, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())

			_, err = srv.ApplyAction(context.TODO(), stranger, c.ID, contract.ActionCancel)
			_, ok := err.(*service.ErrAccessForbidden)
			Expect(ok).To(BeTrue())
		})

		It("rejects an action replayed on a contract that moved on", func() {
			srv := service.NewContractService(s, nil)
			c, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())

			_, err = srv.ApplyAction(context.TODO(), landlord, c.ID, contract.ActionCancel)
			Expect(err).To(BeNil())

			_, err = srv.ApplyAction(context.TODO(), landlord, c.ID, contract.ActionCancel)
			_, ok := err.(*service.ErrTransitionForbidden)
			Expect(ok).To(BeTrue())
		})

		It("uses a custom transition table", func() {
			engine, err := contract.NewEngine([]contract.Transition{
				{From: contract.StatusDraft, To: contract.StatusActive, Action: contract.ActionSign, Role: contract.RoleLandlord},
			})
			Expect(err).To(BeNil())
			srv := service.NewContractService(s, nil).WithEngine(engine)

			c, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())

			updated, err := srv.ApplyAction(context.TODO(), landlord, c.ID, contract.ActionSign)
			Expect(err).To(BeNil())
			Expect(updated.Status).To(Equal(string(contract.StatusActive)))
		})
	})

	Context("delete", func() {
		It("deletes a draft", func() {
			srv := service.NewContractService(s, nil)
			c, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())

			Expect(srv.DeleteContract(context.TODO(), landlord, c.ID)).To(Succeed())

			_, err = srv.GetContract(context.TODO(), landlord, c.ID)
			_, ok := err.(*service.ErrResourceNotFound)
			Expect(ok).To(BeTrue())
		})

		It("refuses to delete an active contract", func() {
			srv := service.NewContractService(s, nil)
			c, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())
			_, err = srv.ApplyAction(context.TODO(), landlord, c.ID, contract.ActionSendForSignature)
			Expect(err).To(BeNil())
			_, err = srv.ApplyAction(context.TODO(), tenant, c.ID, contract.ActionSign)
			Expect(err).To(BeNil())

			err = srv.DeleteContract(context.TODO(), landlord, c.ID)
			_, ok := err.(*service.ErrContractConflict)
			Expect(ok).To(BeTrue())
		})

		It("refuses the tenant", func() {
			srv := service.NewContractService(s, nil)
			c, err := srv.CreateContract(context.TODO(), landlord, newForm())
			Expect(err).To(BeNil())

			err = srv.DeleteContract(context.TODO(), tenant, c.ID)
			_, ok := err.(*service.ErrAccessForbidden)
			Expect(ok).To(BeTrue())
		})
	})
})
