package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT false,
				trigger_type VARCHAR(64) NOT NULL,
				trigger_config JSONB NOT NULL DEFAULT '{}',
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_tenant_trigger ON workflows(tenant_id, trigger_type) WHERE enabled;

			CREATE TABLE workflow_executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				status VARCHAR(20) NOT NULL CHECK (status IN ('running', 'success', 'failed', 'cancelled')),
				triggered_by VARCHAR(64) NOT NULL,
				triggered_by_id TEXT,
				trigger_data JSONB NOT NULL DEFAULT '{}',
				execution_data JSONB NOT NULL DEFAULT '{}',
				error_message TEXT,
				error_stack TEXT,
				execution_time_ms BIGINT,
				executed_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_executions_workflow ON workflow_executions(workflow_id, executed_at DESC);
			CREATE INDEX idx_workflow_executions_status ON workflow_executions(status);
		`,
		2: `
			CREATE TABLE contacts (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL DEFAULT '',
				company TEXT NOT NULL DEFAULT '',
				source TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT '',
				tags TEXT[] NOT NULL DEFAULT '{}',
				metadata JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_contacts_tenant ON contacts(tenant_id);

			CREATE TABLE deals (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				contact_id TEXT NOT NULL,
				title TEXT NOT NULL,
				value NUMERIC(14, 2) NOT NULL DEFAULT 0,
				currency VARCHAR(8) NOT NULL DEFAULT '',
				stage VARCHAR(64) NOT NULL,
				expected_close_date DATE,
				metadata JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_deals_tenant ON deals(tenant_id);
			CREATE INDEX idx_deals_contact ON deals(contact_id);

			CREATE TABLE users (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				email TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_users_tenant_email ON users(tenant_id, lower(email));

			CREATE TABLE notifications (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				title TEXT NOT NULL,
				message TEXT NOT NULL DEFAULT '',
				type VARCHAR(32) NOT NULL,
				link TEXT NOT NULL DEFAULT '',
				metadata JSONB NOT NULL DEFAULT '{}',
				read BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_notifications_user ON notifications(tenant_id, user_id, created_at DESC);
		`,
	}
}
