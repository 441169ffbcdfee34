package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"pricemonitor/config"
	"pricemonitor/models"
	"pricemonitor/scraper"
	"pricemonitor/services"
)

const (
	TriggerPeriodic = "periodic"
	TriggerManual   = "manual"
	TriggerSubmit   = "submit"
)

type Store interface {
	GetCheckableProducts(ctx context.Context) ([]models.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	AcquireLease(ctx context.Context, productID uuid.UUID, owner string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, productID uuid.UUID, owner string) error
	HoldsLease(ctx context.Context, productID uuid.UUID, owner string) (bool, error)
	CreateRun(ctx context.Context, run *models.ScrapeRun) error
	FinishRun(ctx context.Context, run *models.ScrapeRun) error
}

// HandlerResolver maps a product URL to its marketplace scraper.
type HandlerResolver interface {
	HandlerFor(productURL string) (scraper.Handler, error)
}

type job struct {
	productID uuid.UUID
	trigger   string
}

// Scheduler drives the check pipeline: a cron-scheduled sweep over every
// checkable product, plus a queue for submit-time and manual single-product
// jobs. All scraping goes through the per-product lease, so overlapping
// cycles and queued jobs never double-process a product.
type Scheduler struct {
	cfg        config.SchedulerConfig
	store      Store
	registry   HandlerResolver
	cache      *scraper.Cache
	detector   *services.Detector
	dispatcher *services.Dispatcher

	cron   *cron.Cron
	jobs   chan job
	sem    chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
	owner  string
}

func New(cfg config.SchedulerConfig, store Store, registry HandlerResolver,
	cache *scraper.Cache, detector *services.Detector, dispatcher *services.Dispatcher) *Scheduler {

	hostname, _ := os.Hostname()
	return &Scheduler{
		cfg:        cfg,
		store:      store,
		registry:   registry,
		cache:      cache,
		detector:   detector,
		dispatcher: dispatcher,
		cron:       cron.New(),
		jobs:       make(chan job, 256),
		sem:        make(chan struct{}, cfg.Workers),
		stopCh:     make(chan struct{}),
		owner:      fmt.Sprintf("%s-%d", hostname, os.Getpid()),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	if s.cfg.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Cron)
		_, err := s.cron.AddFunc(s.cfg.Cron, func() {
			if err := s.RunCycle(ctx, TriggerPeriodic); err != nil {
				log.Printf("Scheduled cycle error: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else {
		log.Println("No cron configured, daemon will only process queued jobs")
	}

	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	close(s.stopCh)
	s.wg.Wait()
}

// Enqueue queues a submit-time scrape for a just-added product. Never blocks
// the caller; a full queue drops the job and the periodic cycle picks the
// product up instead.
func (s *Scheduler) Enqueue(productID uuid.UUID) {
	s.enqueue(productID, TriggerSubmit)
}

// EnqueueManual queues a user-requested refresh.
func (s *Scheduler) EnqueueManual(productID uuid.UUID) {
	s.enqueue(productID, TriggerManual)
}

func (s *Scheduler) enqueue(productID uuid.UUID, trigger string) {
	select {
	case s.jobs <- job{productID: productID, trigger: trigger}:
	default:
		log.Printf("Warning: job queue full, dropping %s job for %s", trigger, productID)
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case j := <-s.jobs:
			s.runSingle(ctx, j)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runSingle(ctx context.Context, j job) {
	run := &models.ScrapeRun{Trigger: j.trigger, StartedAt: time.Now(), Status: models.RunStatusRunning}
	if err := s.store.CreateRun(ctx, run); err != nil {
		log.Printf("Warning: create run: %v", err)
	}

	p, err := s.store.GetProductByID(ctx, j.productID)
	if err != nil || p == nil {
		s.finishRun(ctx, run, models.RunStatusFailed)
		return
	}

	// Queued jobs share the semaphore with the periodic sweep, so the
	// marketplace never sees more than cfg.Workers fetches at once.
	s.sem <- struct{}{}
	outcome := s.checkProduct(ctx, p, j.trigger)
	<-s.sem
	run.ProductsChecked = 1
	s.tally(run, outcome)

	status := models.RunStatusCompleted
	if outcome == outcomeError {
		status = models.RunStatusFailed
	}
	s.finishRun(ctx, run, status)
}

// RunCycle sweeps every checkable product with the bounded worker budget.
// Individual product failures are tallied, never fatal to the cycle.
func (s *Scheduler) RunCycle(ctx context.Context, trigger string) error {
	run := &models.ScrapeRun{Trigger: trigger, StartedAt: time.Now(), Status: models.RunStatusRunning}
	if err := s.store.CreateRun(ctx, run); err != nil {
		log.Printf("Warning: create run: %v", err)
	}

	products, err := s.store.GetCheckableProducts(ctx)
	if err != nil {
		s.finishRun(ctx, run, models.RunStatusFailed)
		return fmt.Errorf("load products: %w", err)
	}

	log.Printf("Cycle started (%s): %d products", trigger, len(products))

	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := range products {
		p := products[i]
		wg.Add(1)
		s.sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-s.sem }()

			outcome := s.checkProduct(ctx, &p, trigger)

			mu.Lock()
			run.ProductsChecked++
			s.tally(run, outcome)
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.finishRun(ctx, run, models.RunStatusCompleted)
	log.Printf("Cycle finished: %d checked, %d changes, %d skipped, %d errors",
		run.ProductsChecked, run.PriceChanges, run.Skipped, run.ErrorsCount)
	return nil
}

func (s *Scheduler) finishRun(ctx context.Context, run *models.ScrapeRun, status models.RunStatus) {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	if run.ID == 0 {
		return
	}
	if err := s.store.FinishRun(ctx, run); err != nil {
		log.Printf("Warning: finish run %d: %v", run.ID, err)
	}
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeChanged
	outcomeSkipped
	outcomeError
)

func (s *Scheduler) tally(run *models.ScrapeRun, o outcome) {
	switch o {
	case outcomeChanged:
		run.PriceChanges++
	case outcomeSkipped:
		run.Skipped++
	case outcomeError:
		run.ErrorsCount++
	}
}

func (s *Scheduler) checkProduct(ctx context.Context, p *models.Product, trigger string) outcome {
	acquired, err := s.store.AcquireLease(ctx, p.ID, s.owner, s.cfg.LeaseTTL)
	if err != nil {
		log.Printf("Lease error for %s: %v", p.ID, err)
		return outcomeError
	}
	if !acquired {
		return outcomeSkipped
	}
	defer func() {
		if err := s.store.ReleaseLease(context.WithoutCancel(ctx), p.ID, s.owner); err != nil {
			log.Printf("Warning: release lease for %s: %v", p.ID, err)
		}
	}()

	handler, err := s.registry.HandlerFor(p.URL)
	if err != nil {
		return s.recordFailure(ctx, p, err)
	}

	var obs *services.Observation
	if trigger == TriggerSubmit {
		// A URL another user already tracks was scraped moments ago;
		// reuse that result instead of hitting the marketplace again.
		if cached, ok := s.cache.Get(ctx, p.URL); ok {
			obs = cached
		}
	}

	if obs == nil {
		sctx, cancel := context.WithTimeout(ctx, s.cfg.ScrapeTimeout)
		obs, err = handler.Scrape(sctx, p.URL)
		cancel()
		if err != nil {
			return s.recordFailure(ctx, p, err)
		}
		s.cache.Set(ctx, p.URL, obs)
	}

	// A reclaimed lease means this job ran too long and another worker owns
	// the product now; late results are discarded, not committed.
	held, err := s.store.HoldsLease(ctx, p.ID, s.owner)
	if err != nil || !held {
		log.Printf("Lease lost for %s, discarding result", p.ID)
		return outcomeSkipped
	}

	result, err := s.detector.Evaluate(ctx, p, *obs)
	if err != nil {
		return s.recordFailure(ctx, p, err)
	}

	if _, err := s.dispatcher.DispatchChange(ctx, p, result); err != nil {
		log.Printf("Warning: dispatch for %s: %v", p.ID, err)
	}

	if result.Kind == services.Dropped || result.Kind == services.Increased {
		log.Printf("Price %s for %s: %s -> %s", result.Kind, p.Name, result.OldPrice, result.NewPrice)
		return outcomeChanged
	}
	return outcomeUnchanged
}

// recordFailure bumps the consecutive-failure counter and flips the product
// to ERROR at the threshold, notifying the owner once on the transition. The
// product stays in the cycle and recovers on the next successful scrape.
func (s *Scheduler) recordFailure(ctx context.Context, p *models.Product, cause error) outcome {
	log.Printf("Check failed for %s: %v", p.ID, cause)

	now := time.Now()
	p.FailCount++
	p.LastCheckedAt = &now

	if p.FailCount >= s.cfg.FailThreshold && p.Status != models.ProductStatusError {
		p.Status = models.ProductStatusError
		productID := p.ID
		msg := fmt.Sprintf("Não foi possível verificar o produto %q após %d tentativas. Verifique se o anúncio ainda existe.",
			p.Name, p.FailCount)
		if _, err := s.dispatcher.DispatchSystem(ctx, p.UserID, &productID, msg); err != nil {
			log.Printf("Warning: system notification for %s: %v", p.ID, err)
		}
	}

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		log.Printf("Warning: persist failure state for %s: %v", p.ID, err)
	}
	return outcomeError
}
