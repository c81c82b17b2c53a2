package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE flows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'inactive')),
				trigger_type VARCHAR(50) NOT NULL,
				trigger_config JSONB,
				operations JSONB NOT NULL DEFAULT '[]',
				connections JSONB NOT NULL DEFAULT '[]',
				canvas_state JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_flows_status ON flows(status);
			CREATE INDEX idx_flows_created_at ON flows(created_at);
			CREATE INDEX idx_flows_deleted_at ON flows(deleted_at);

			CREATE TABLE executions (
				id UUID PRIMARY KEY,
				flow_id UUID NOT NULL,
				status VARCHAR(50) NOT NULL,
				trigger JSONB,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE,
				results JSONB NOT NULL DEFAULT '[]'
			);

			CREATE INDEX idx_executions_flow_id ON executions(flow_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_started_at ON executions(started_at);
		`,
	}
}
